package dsl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		unit   TimeUnit
		amount float64
		anchor string
	}{
		{name: "float seconds", input: 12.5, unit: TimeSeconds, amount: 12.5},
		{name: "int seconds", input: int64(4), unit: TimeSeconds, amount: 4},
		{name: "string seconds", input: "12.5", unit: TimeSeconds, amount: 12.5},
		{name: "suffixed seconds", input: "12.5s", unit: TimeSeconds, amount: 12.5},
		{name: "long seconds", input: "3 seconds", unit: TimeSeconds, amount: 3},
		{name: "mm:ss", input: "1:30", unit: TimeSeconds, amount: 90},
		{name: "mm:ss fraction", input: "0:05.25", unit: TimeSeconds, amount: 5.25},
		{name: "hh:mm:ss", input: "1:02:03", unit: TimeSeconds, amount: 3723},
		{name: "bars", input: "8 bars", unit: TimeBars, amount: 8},
		{name: "one bar", input: "1 bar", unit: TimeBars, amount: 1},
		{name: "measures", input: "2 measures", unit: TimeBars, amount: 2},
		{name: "beats", input: "4 beats", unit: TimeBeats, amount: 4},
		{name: "start", input: "start", unit: TimeAnchor, anchor: AnchorStart},
		{name: "beginning", input: "Beginning", unit: TimeAnchor, anchor: AnchorStart},
		{name: "end", input: "end", unit: TimeAnchor, anchor: AnchorEnd},
		{name: "loop", input: "loop", unit: TimeAnchor, anchor: AnchorLoop},
		{name: "cursor", input: "cursor", unit: TimeAnchor, anchor: AnchorCursor},
		{name: "selection", input: "selection", unit: TimeAnchor, anchor: AnchorSelection},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTime(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.unit, got.Unit)
			require.InDelta(t, tc.amount, got.Amount, 1e-9)
			require.Equal(t, tc.anchor, got.Anchor)
		})
	}
}

func TestParseTimeRejects(t *testing.T) {
	tests := []struct {
		input any
		token string
	}{
		{input: "soon", token: "soon"},
		{input: "1:75", token: "1:75"},
		{input: "1:60:00", token: "1:60:00"},
		{input: "-3", token: "-3"},
		{input: -3.0, token: "-3"},
		{input: "8 parsecs", token: "8 parsecs"},
		{input: []any{1}, token: "[1]"},
	}

	for _, tc := range tests {
		_, err := ParseTime(tc.input)

		var ve *errors.ValidationError
		require.ErrorAs(t, err, &ve, tc.token)
		require.Equal(t, "time", ve.Param)
		require.Equal(t, tc.token, ve.Token)
	}
}

func TestTimeRangeLength(t *testing.T) {
	require.Equal(t, 16.0, TimeRange{Start: 4, End: 20}.Length())
}
