package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// stubCaller answers calls from a table; unknown functions fail the way
// the dispatcher reports them.
type stubCaller struct {
	answers map[string]func(args []any) (any, error)
	calls   []string
}

func (s *stubCaller) Call(_ context.Context, function string, args ...any) (any, error) {
	s.calls = append(s.calls, function)

	if fn, ok := s.answers[function]; ok {
		return fn(args)
	}

	return nil, errors.FromRemote(function, "Unknown function: "+function)
}

func answer(v any) func([]any) (any, error) {
	return func([]any) (any, error) { return v, nil }
}

func healthyAnswers() map[string]func([]any) (any, error) {
	answers := make(map[string]func([]any) (any, error))
	for _, p := range requiredFunctions {
		answers[p.function] = answer(nil)
	}

	return answers
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(map[string]func([]any) (any, error))
		success   bool
		stage     errors.Stage
		reachable bool
		missing   []string
		failed    []string
	}{
		{
			name:      "healthy",
			edit:      func(map[string]func([]any) (any, error)) {},
			success:   true,
			reachable: true,
		},
		{
			name: "missing functions",
			edit: func(a map[string]func([]any) (any, error)) {
				delete(a, "ListMarkers")
				delete(a, "BarsToTime")
			},
			stage:     errors.StageDispatch,
			reachable: true,
			missing:   []string{"BarsToTime", "ListMarkers"},
		},
		{
			name: "failing function",
			edit: func(a map[string]func([]any) (any, error)) {
				a["GetTempo"] = func([]any) (any, error) { return nil, errors.FromRemote("GetTempo", "tempo map corrupt") }
			},
			stage:     errors.StageInvocation,
			reachable: true,
			failed:    []string{"GetTempo"},
		},
		{
			name: "unreachable",
			edit: func(a map[string]func([]any) (any, error)) {
				a["GetAllTracksInfo"] = func([]any) (any, error) {
					return nil, &errors.TimeoutError{Function: "GetAllTracksInfo", Timeout: "5s"}
				}
			},
			stage: errors.StageTransport,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			answers := healthyAnswers()
			tc.edit(answers)

			cmds := NewCommands(discardLogger(), &stubCaller{answers: answers})

			res := cmds.Health(context.Background())
			require.Equal(t, tc.success, res.Success, res.Error)
			require.Equal(t, tc.stage, res.Stage)

			report, ok := res.Data.(*HealthReport)
			require.True(t, ok)
			require.Equal(t, tc.reachable, report.Reachable)
			require.Equal(t, tc.missing, report.Missing)
			require.Equal(t, tc.success, report.Healthy())

			for _, name := range tc.failed {
				require.Contains(t, report.Failed, name)
			}
		})
	}
}

func TestHealthMissingNamesFunction(t *testing.T) {
	answers := healthyAnswers()
	delete(answers, "GetTimeSignature")

	res := NewCommands(discardLogger(), &stubCaller{answers: answers}).Health(context.Background())
	require.False(t, res.Success)
	require.Equal(t, "GetTimeSignature", res.Token)
	require.Contains(t, res.Error, "missing DSL functions GetTimeSignature")
}

func TestFailedActionDoesNotRemember(t *testing.T) {
	track := map[string]any{"index": int64(0), "name": "Drums", "volume": 1.0, "pan": 0.0}

	stub := &stubCaller{answers: map[string]func([]any) (any, error){
		"GetAllTracksInfo": answer([]any{track}),
		"GetTrackInfo":     answer(track),
		"SetTrackVolume": func([]any) (any, error) {
			return nil, errors.FromRemote("SetTrackVolume", "track is frozen")
		},
	}}

	cmds := NewCommands(discardLogger(), stub)

	res := cmds.TrackVolume(context.Background(), "Drums", "-6")
	require.False(t, res.Success)
	require.Equal(t, errors.StageInvocation, res.Stage)
	require.Equal(t, "SetTrackVolume failed: track is frozen", res.Error)
	require.Equal(t, "SetTrackVolume", res.Token)

	_, err := cmds.Session().Recall(KindTrack)
	require.ErrorIs(t, err, errors.ErrNotSet)
}

func TestDecodeFailureIsTransportStage(t *testing.T) {
	stub := &stubCaller{answers: map[string]func([]any) (any, error){
		"GetAllTracksInfo": answer("not a list"),
	}}

	res := NewCommands(discardLogger(), stub).GetTracks(context.Background())
	require.False(t, res.Success)
	require.Equal(t, errors.StageTransport, res.Stage)
}
