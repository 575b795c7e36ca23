package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/host-bridge-go/internal/errors"
	"github.com/wagiedev/host-bridge-go/internal/host"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

func newDemoResolver(t *testing.T) *Resolver {
	t.Helper()

	h, err := host.New(discardLogger(), host.Demo())
	require.NoError(t, err)

	lb := h.Loopback(wire.CBOR{})
	require.NoError(t, lb.Start(context.Background()))

	return NewResolver(NewClient(discardLogger(), lb), NewSession())
}

func TestResolveKinds(t *testing.T) {
	r := newDemoResolver(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		expr     any
		kind     Kind
		wantName string
		wantIdx  int
		wantPos  float64
	}{
		{name: "track by name", expr: "keys", kind: KindTrack, wantName: "Keys", wantIdx: 2},
		{name: "unnamed track", expr: "track 5", kind: KindTrack, wantName: "Track 5", wantIdx: 4},
		{name: "track by int64", expr: int64(3), kind: KindTrack, wantName: "Lead Vocal", wantIdx: 3},
		{name: "track by integral float", expr: 0.0, kind: KindTrack, wantName: "Drums", wantIdx: 0},
		{name: "item by default name", expr: "Item 3", kind: KindItem, wantName: "Item 3", wantIdx: 2, wantPos: 16},
		{name: "marker", expr: "chorus", kind: KindMarker, wantName: "Chorus", wantIdx: 2, wantPos: 24},
		{name: "region", expr: "verse", kind: KindMarker, wantName: "Verse", wantIdx: 1, wantPos: 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := r.Resolve(ctx, tc.expr, tc.kind)
			require.NoError(t, err)
			require.Equal(t, tc.kind, ref.Kind)
			require.Equal(t, tc.wantName, ref.Name)
			require.Equal(t, tc.wantIdx, ref.Index)
			require.Equal(t, tc.wantPos, ref.Position)
			require.Positive(t, ref.Confidence)
		})
	}
}

func TestResolveRejects(t *testing.T) {
	r := newDemoResolver(t)
	ctx := context.Background()

	_, err := r.Resolve(ctx, 1.5, KindTrack)
	require.ErrorIs(t, err, errors.ErrInvalidValue)

	_, err = r.Resolve(ctx, nil, KindTrack)
	require.ErrorIs(t, err, errors.ErrInvalidValue)

	_, err = r.Resolve(ctx, "drums", Kind("widget"))
	require.ErrorIs(t, err, errors.ErrInvalidValue)

	_, err = r.Resolve(ctx, "last", KindMarker)
	require.ErrorIs(t, err, errors.ErrNotSet)

	_, err = r.Resolve(ctx, "-1", KindItem)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestResolvePositions(t *testing.T) {
	r := newDemoResolver(t)
	ctx := context.Background()

	tests := []struct {
		expr any
		want float64
	}{
		{expr: "start", want: 0},
		{expr: "end", want: 32},
		{expr: "cursor", want: 0},
		{expr: "8 bars", want: 16},
		{expr: "6 beats", want: 3},
		{expr: "1:05", want: 65},
		{expr: 7.25, want: 7.25},
	}

	for _, tc := range tests {
		got, err := r.Position(ctx, tc.expr)
		require.NoError(t, err, tc.expr)
		require.InDelta(t, tc.want, got, 1e-9, tc.expr)
	}

	_, err := r.Position(ctx, "selection")
	require.ErrorIs(t, err, errors.ErrNotFound)

	_, err = r.Duration(ctx, "end", 0)
	require.ErrorIs(t, err, errors.ErrInvalidValue)
}

func TestRangeForms(t *testing.T) {
	r := newDemoResolver(t)
	ctx := context.Background()

	rng, err := r.Range(ctx, 4.0)
	require.NoError(t, err)
	require.Equal(t, TimeRange{Start: 0, End: 4}, rng)

	rng, err = r.Range(ctx, map[string]any{"bars": 2.5})
	require.NoError(t, err)
	require.Equal(t, TimeRange{Start: 0, End: 5, Bars: 2.5}, rng)

	_, err = r.Range(ctx, map[string]any{"start": 1.0})
	require.ErrorIs(t, err, errors.ErrInvalidValue)

	_, err = r.Range(ctx, map[string]any{"end": 1.0})
	require.ErrorIs(t, err, errors.ErrInvalidValue)

	_, err = r.Range(ctx, "0 bars")
	require.ErrorIs(t, err, errors.ErrInvalidValue)
}
