package dsl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

func TestSession(t *testing.T) {
	s := NewSession()

	_, err := s.Recall(KindTrack)
	require.ErrorIs(t, err, errors.ErrNotSet)
	require.EqualError(t, err, "No previous track referenced")

	ref := Ref{Kind: KindTrack, Index: 2, Name: "Keys", Confidence: 1}
	s.Remember(KindTrack, ref)

	got, err := s.Recall(KindTrack)
	require.NoError(t, err)
	require.Equal(t, ref, got)

	_, err = s.Recall(KindItem)
	require.ErrorIs(t, err, errors.ErrNotSet, "kinds are tracked separately")

	snap := s.Snapshot()
	require.Equal(t, map[Kind]Ref{KindTrack: ref}, snap)

	s.Reset()

	_, err = s.Recall(KindTrack)
	require.ErrorIs(t, err, errors.ErrNotSet)
	require.Len(t, snap, 1, "snapshots are copies")
}
