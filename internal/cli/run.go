package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/bindlab/internal/env"
	"github.com/roach88/bindlab/internal/harness"
	"github.com/roach88/bindlab/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to harness.UUIDv7Generator.
	RunIDs harness.RunIDGenerator
}

// RunSummary is the JSON payload of the run command.
type RunSummary struct {
	Runs   []*harness.Result `json:"runs"`
	Passed int               `json:"passed"`
	Failed int               `json:"failed"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>...",
		Short: "Run scenario files and print their transcripts",
		Long: `Run one or more scenario files (.yaml, .yml or .cue).

Each event is printed as it happens. With --db, every run and its events
are recorded in a SQLite journal that "bindlab trace" can query.

Example:
  bindlab run ./scenarios/aliasing.yaml
  bindlab run --db ./bindlab.db ./scenarios/*.yaml --verbose`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")

	return cmd
}

func runScenarios(opts *RunOptions, files []string, cmd *cobra.Command) error {
	ctx := context.Background()
	w := cmd.OutOrStdout()
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = harness.UUIDv7Generator{}
	}

	var j *journal.Journal
	if opts.Database != "" {
		logger.Info("opening journal", "path", opts.Database)
		var err error
		j, err = journal.Open(opts.Database, journal.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
	}

	summary := RunSummary{Runs: make([]*harness.Result, 0, len(files))}
	for i, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", file), err)
		}

		// Fix the run id up front so the journal row exists before the
		// first event arrives.
		sc := *scenario
		if sc.RunID == "" {
			sc.RunID = runIDs.Generate()
		}

		if opts.Format != "json" && i > 0 {
			fmt.Fprintln(w)
		}
		result, err := runOne(ctx, &sc, j, opts, cmd, logger)
		if err != nil {
			return err
		}
		summary.Runs = append(summary.Runs, result)
		if result.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(CLIResponse{Status: "ok", Data: summary}); err != nil {
			return err
		}
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

func runOne(ctx context.Context, sc *harness.Scenario, j *journal.Journal, opts *RunOptions, cmd *cobra.Command, logger *slog.Logger) (*harness.Result, error) {
	w := cmd.OutOrStdout()
	runOpts := []harness.RunOption{harness.WithLogger(logger)}
	if opts.Format != "json" {
		runOpts = append(runOpts, harness.WithSink(env.NewTextSink(w)))
	}

	var sink *journal.Sink
	if j != nil {
		err := j.BeginRun(ctx, journal.Run{ID: sc.RunID, Scenario: sc.Name, Description: sc.Description})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to record run", err)
		}
		sink = journal.NewSink(ctx, j, sc.RunID)
		runOpts = append(runOpts, harness.WithSink(sink))
	}

	logger.Debug("running scenario", "scenario", sc.Name, "run_id", sc.RunID)
	result, err := harness.Run(sc, runOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to run %s", sc.Name), err)
	}

	if j != nil {
		if err := sink.Err(); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to journal events", err)
		}
		if err := j.FinishRun(ctx, sc.RunID, result.Pass, result.Errors); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to finish run", err)
		}
		logger.Info("run recorded", "run_id", sc.RunID, "events", len(result.Events))
	}

	if opts.Format != "json" {
		for _, e := range result.Errors {
			fmt.Fprintf(w, "✗ %s\n", e)
		}
	}
	return result, nil
}
