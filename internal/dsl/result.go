package dsl

import (
	stderrors "errors"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// Result is the uniform outcome of a DSL command.
type Result struct {
	Success bool           `json:"success"`
	Action  string         `json:"action"`
	Message string         `json:"message,omitempty"`
	Targets []Ref          `json:"targets,omitempty"`
	Changes map[string]any `json:"changes,omitempty"`
	Data    any            `json:"data,omitempty"`

	Error      string       `json:"error,omitempty"`
	Stage      errors.Stage `json:"stage,omitempty"`
	Token      string       `json:"token,omitempty"`
	Candidates []string     `json:"candidates,omitempty"`

	Calls []CallRecord `json:"calls,omitempty"`
}

// Change is a before/after pair recorded in Result.Changes.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

func (r *Result) change(key string, from, to any) {
	if r.Changes == nil {
		r.Changes = make(map[string]any)
	}

	r.Changes[key] = Change{From: from, To: to}
}

func (r *Result) fail(err error) {
	r.Success = false
	r.Error = err.Error()
	r.Stage = errors.StageOf(err)
	r.Token = errors.OffendingToken(err)

	var ambiguous *errors.AmbiguousError
	if stderrors.As(err, &ambiguous) {
		r.Candidates = ambiguous.Candidates
	}
}
