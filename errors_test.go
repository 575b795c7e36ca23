package hostbridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorAliasesMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		stage    Stage
	}{
		{name: "timeout", err: &TimeoutError{Function: "CountTracks", Timeout: "5s"}, sentinel: ErrTimeout, stage: StageTransport},
		{name: "decode", err: &DecodeError{RawData: "{"}, sentinel: ErrMalformedResponse, stage: StageTransport},
		{name: "unknown function", err: &UnknownFunctionError{Function: "Frobnicate"}, sentinel: ErrUnknownFunction, stage: StageDispatch},
		{name: "not found", err: &NotFoundError{Kind: "track", Expr: "kazoo"}, sentinel: ErrNotFound, stage: StageResolution},
		{name: "ambiguous", err: &AmbiguousError{Kind: "track", Expr: "gtr"}, sentinel: ErrAmbiguous, stage: StageResolution},
		{name: "not set", err: &NotSetError{Kind: "item"}, sentinel: ErrNotSet, stage: StageResolution},
		{name: "validation", err: &ValidationError{Param: "pan", Token: "L150"}, sentinel: ErrInvalidValue, stage: StageValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("command: %w", tc.err)

			require.ErrorIs(t, wrapped, tc.sentinel)
			require.Equal(t, tc.stage, StageOf(wrapped))

			var be BridgeError
			require.True(t, errors.As(wrapped, &be))
			require.True(t, be.IsBridgeError())
		})
	}
}

func TestStageOfPlainError(t *testing.T) {
	require.Equal(t, Stage(""), StageOf(errors.New("plain")))
}
