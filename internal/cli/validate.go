package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bindlab/internal/harness"
)

// FileValidation is the validation outcome for one scenario file.
type FileValidation struct {
	File     string `json:"file"`
	Scenario string `json:"scenario,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
	Position string `json:"position,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files without running them.

YAML scenarios are decoded strictly, so unknown keys are errors. CUE
scenarios are additionally unified with the scenario schema. Both are
then checked for a single action per step and well-formed assertions.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("validating %s", file)
		fv := FileValidation{File: file, Valid: true}

		scenario, err := harness.LoadScenario(file)
		if err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			var loadErr *harness.LoadError
			if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
				fv.Position = fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			}
			result.Valid = false
		} else {
			fv.Scenario = scenario.Name
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp = CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeLoadFailed, Message: "one or more scenarios are invalid"},
			}
		}
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(w, "✓ %s (%s)\n", fv.File, fv.Scenario)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", fv.File)
			fmt.Fprintf(w, "  %s\n", fv.Error)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
