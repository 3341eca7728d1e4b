package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bindlab/internal/harness"
)

// DemoResult is the JSON payload of the demo command.
type DemoResult struct {
	Runs   []*harness.Result `json:"runs"`
	Passed int               `json:"passed"`
	Failed int               `json:"failed"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo [name...]",
		Short: "Run the built-in demonstrations",
		Long: `Run the embedded demonstrations and print their transcripts.

With no arguments every demonstration runs in order. Use "bindlab list"
to see the available names.

Examples:
  bindlab demo
  bindlab demo shared_command_buffer record_alias
  bindlab demo --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runDemo(opts *RootOptions, names []string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	if len(names) == 0 {
		names = harness.BuiltinNames()
	}

	result := DemoResult{Runs: make([]*harness.Result, 0, len(names))}
	for i, name := range names {
		scenario, err := harness.Builtin(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load demonstration", err)
		}

		runResult, err := harness.Run(scenario, harness.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to run %s", name), err)
		}
		result.Runs = append(result.Runs, runResult)
		if runResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}

		if opts.Format == "json" {
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, runResult.Transcript)
		for _, e := range runResult.Errors {
			fmt.Fprintf(w, "✗ %s\n", e)
		}
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(CLIResponse{Status: "ok", Data: result}); err != nil {
			return err
		}
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d demonstration(s) failed", result.Failed))
	}
	return nil
}
