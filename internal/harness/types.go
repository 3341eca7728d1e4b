package harness

import "github.com/roach88/bindlab/internal/env"

// Result is the outcome of a scenario run.
type Result struct {
	// Scenario is the name of the scenario that ran.
	Scenario string `json:"scenario"`

	// RunID identifies this run (journal key).
	RunID string `json:"run_id"`

	// Pass is true if every step and assertion succeeded.
	Pass bool `json:"pass"`

	// Events are the environment events in emission order.
	Events []env.Event `json:"-"`

	// Transcript is the console rendering of Events, one line per event.
	Transcript string `json:"transcript"`

	// LiveAggregates is the store size when the run ended.
	LiveAggregates int `json:"live_aggregates"`

	// Errors holds step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult(scenario, runID string) *Result {
	return &Result{
		Scenario: scenario,
		RunID:    runID,
		Pass:     true,
		Errors:   []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
