package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/bindlab/internal/env"
	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/seq"
	"github.com/roach88/bindlab/internal/testutil"
)

// RunIDGenerator produces the id stamped on a run.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

type runConfig struct {
	clock  seq.Source
	runIDs RunIDGenerator
	sinks  []env.Sink
	logger *slog.Logger
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithClock sets the event sequence source.
// Default: a fresh testutil.DeterministicClock, so every run starts at seq 1.
func WithClock(c seq.Source) RunOption {
	return func(cfg *runConfig) {
		cfg.clock = c
	}
}

// WithRunIDGenerator sets the generator used when the scenario has no run_id.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) RunOption {
	return func(cfg *runConfig) {
		cfg.runIDs = g
	}
}

// WithSink adds a sink that receives every event alongside the result's recorder.
func WithSink(s env.Sink) RunOption {
	return func(cfg *runConfig) {
		cfg.sinks = append(cfg.sinks, s)
	}
}

// WithLogger sets the logger passed to the store and environment.
// Default: logs are discarded.
func WithLogger(l *slog.Logger) RunOption {
	return func(cfg *runConfig) {
		cfg.logger = l
	}
}

// Run executes a scenario against a fresh store and environment.
//
// A failing step or assertion is recorded in Result.Errors and does not stop
// the run. Run returns an error only for a scenario that does not validate.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	cfg := runConfig{
		clock:  testutil.NewDeterministicClock(),
		runIDs: UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := scenario.RunID
	if runID == "" {
		runID = cfg.runIDs.Generate()
	}

	rec := &env.Recorder{}
	sink := env.Sink(rec)
	if len(cfg.sinks) > 0 {
		sink = env.MultiSink(append([]env.Sink{rec}, cfg.sinks...)...)
	}

	store := heap.New(heap.WithLogger(cfg.logger))
	environment := env.New(store,
		env.WithSink(sink),
		env.WithClock(cfg.clock),
		env.WithLogger(cfg.logger),
	)
	runner := NewRunner(environment)

	result := NewResult(scenario.Name, runID)
	for i, step := range scenario.Steps {
		if _, err := runner.Exec(step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Describe(), err))
		}
	}

	for _, msg := range EvaluateAssertions(environment, scenario.Assertions) {
		result.AddError(msg)
	}

	result.Events = rec.Events()
	result.Transcript = rec.Transcript()
	result.LiveAggregates = store.Live()
	cfg.logger.Debug("scenario finished", "scenario", scenario.Name, "run_id", runID, "pass", result.Pass)
	return result, nil
}
