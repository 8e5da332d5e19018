package harness

import (
	"github.com/roach88/laborsync/internal/engine"
	"github.com/roach88/laborsync/internal/timeseries"
)

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Name   string         `json:"name"`
	Report *engine.Report `json:"report"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation, invariant and assertion held.
	Pass bool `json:"pass"`

	// Steps holds one entry per executed step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Table is the persisted table after the last step. Never nil.
	Table *timeseries.Table `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
		Table:  timeseries.New(),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
