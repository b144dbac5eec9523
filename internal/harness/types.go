package harness

import (
	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/store"
)

// Param is one bound parameter of the compiled statement, with its value as
// the warehouse receives it.
type Param struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	CompilationID string `json:"compilation_id,omitempty"`
	Fingerprint   string `json:"fingerprint,omitempty"`

	// SQL and Params are empty when the request was rejected.
	SQL    string  `json:"sql,omitempty"`
	Params []Param `json:"params,omitempty"`

	// Count is set for the count shape, Rows for every other shape.
	Count *int64        `json:"count,omitempty"`
	Rows  *store.Result `json:"rows,omitempty"`

	// Rejection is the validation error when compilation was refused.
	Rejection *compiler.ValidationError `json:"rejection,omitempty"`

	// Errors contains failed assertion messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
