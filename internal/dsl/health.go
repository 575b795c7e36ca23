package dsl

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// healthCheck is one DSL function called by Health, with arguments that
// make it side-effect free.
type healthCheck struct {
	function string
	args     []any
}

// requiredFunctions are the DSL functions the command layer depends on.
var requiredFunctions = []healthCheck{
	{"GetAllTracksInfo", nil},
	{"GetCursorPosition", nil},
	{"BarsToTime", []any{int64(1), 0.0}},
	{"GetTimeSelection", nil},
	{"GetLoopTimeRange", nil},
	{"GetTempo", nil},
	{"GetTimeSignature", nil},
	{"ListItems", nil},
	{"ListMarkers", nil},
	{"GetPlayState", nil},
}

// HealthReport describes the remote side's readiness.
type HealthReport struct {
	Reachable bool              `json:"reachable"`
	Checked   []string          `json:"checked"`
	Missing   []string          `json:"missing,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// Healthy reports whether every required function answered.
func (h *HealthReport) Healthy() bool {
	return h.Reachable && len(h.Missing) == 0 && len(h.Failed) == 0
}

// Health calls each DSL function the command layer relies on. A function
// answering "Unknown function" is missing; a transport failure means the
// remote side is unreachable and ends the check.
func (c *Commands) Health(ctx context.Context) *Result {
	return c.run(ctx, ActionHealth, func(ctx context.Context, res *Result) error {
		report := &HealthReport{}
		res.Data = report

		var firstFailure error

		for _, p := range requiredFunctions {
			report.Checked = append(report.Checked, p.function)

			_, err := c.c.Call(ctx, p.function, p.args...)

			switch {
			case err == nil:
				report.Reachable = true
			case errors.StageOf(err) == errors.StageTransport:
				return fmt.Errorf("remote unreachable: %w", err)
			case stderrors.Is(err, errors.ErrUnknownFunction):
				report.Reachable = true
				report.Missing = append(report.Missing, p.function)
			default:
				report.Reachable = true

				if report.Failed == nil {
					report.Failed = make(map[string]string)
				}

				report.Failed[p.function] = err.Error()

				if firstFailure == nil {
					firstFailure = err
				}
			}
		}

		if len(report.Missing) > 0 {
			return fmt.Errorf("missing DSL functions %s: %w",
				strings.Join(report.Missing, ", "), &errors.UnknownFunctionError{Function: report.Missing[0]})
		}

		if firstFailure != nil {
			return fmt.Errorf("%d DSL functions failing: %w", len(report.Failed), firstFailure)
		}

		res.Message = fmt.Sprintf("All %d DSL functions available", len(report.Checked))

		return nil
	})
}
