package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/bindlab/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show one run's events
	Digest   string // optional - find events whose value has this digest
}

// RunTrace is the JSON payload for a single run.
type RunTrace struct {
	Run     journal.Run     `json:"run"`
	Entries []journal.Entry `json:"entries"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the run journal",
		Long: `Query a journal written by "bindlab run --db".

Without --run, lists every recorded run with its status. With --run,
prints that run's events in sequence order. With --digest, lists every
event, across runs, whose value has the given content digest.

Examples:
  bindlab trace --db ./bindlab.db
  bindlab trace --db ./bindlab.db --run 0190f5c2-...
  bindlab trace --db ./bindlab.db --digest sha256:...
  bindlab trace --db ./bindlab.db --run 0190f5c2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Digest, "digest", "", "find events by value digest")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Database))
	}
	if opts.RunID != "" && opts.Digest != "" {
		return NewExitError(ExitCommandError, "--run and --digest are mutually exclusive")
	}

	j, err := journal.Open(opts.Database, journal.WithLogger(newLogger(opts.Verbose, cmd.ErrOrStderr())))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	switch {
	case opts.RunID != "":
		return traceRun(ctx, j, opts, cmd)
	case opts.Digest != "":
		return traceDigest(ctx, j, opts, cmd)
	default:
		return traceRuns(ctx, j, opts, cmd)
	}
}

func traceRuns(ctx context.Context, j *journal.Journal, opts *TraceOptions, cmd *cobra.Command) error {
	runs, err := j.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(CLIResponse{Status: "ok", Data: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTATUS\tSCENARIO\tEVENTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.ID, r.Status(), r.Scenario, r.Entries)
	}
	return tw.Flush()
}

func traceRun(ctx context.Context, j *journal.Journal, opts *TraceOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	run, err := j.GetRun(ctx, opts.RunID)
	if errors.Is(err, journal.ErrRunNotFound) {
		if opts.Format == "json" {
			formatter := &OutputFormatter{Format: opts.Format, Writer: w}
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to get run", err)
	}

	entries, err := j.Entries(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}

	if opts.Format == "json" {
		return json.NewEncoder(w).Encode(CLIResponse{Status: "ok", Data: RunTrace{Run: run, Entries: entries}})
	}

	fmt.Fprintf(w, "Run %s (%s, %s)\n", run.ID, run.Scenario, run.Status())
	for _, e := range entries {
		fmt.Fprintf(w, "%4d  %s\n", e.Seq, e.Line)
	}
	for _, msg := range run.Errors {
		fmt.Fprintf(w, "✗ %s\n", msg)
	}
	return nil
}

func traceDigest(ctx context.Context, j *journal.Journal, opts *TraceOptions, cmd *cobra.Command) error {
	entries, err := j.EntriesByDigest(ctx, opts.Digest)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query digest", err)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(CLIResponse{Status: "ok", Data: entries})
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No events with that digest.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.RunID, e.Seq, e.Line)
	}
	return tw.Flush()
}
