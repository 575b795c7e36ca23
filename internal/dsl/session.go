package dsl

import (
	"sync"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// Kind is an entity kind the resolver understands.
type Kind string

const (
	KindTrack  Kind = "track"
	KindItem   Kind = "item"
	KindMarker Kind = "marker"
	KindRegion Kind = "region"
)

// Ref is a resolved entity reference.
type Ref struct {
	Kind       Kind    `json:"kind"`
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Role       string  `json:"role,omitempty"`
	Position   float64 `json:"position,omitempty"`
	End        float64 `json:"end,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Session remembers the most recently referenced entity per kind.
//
// A command remembers an entity only after it both resolved the entity and
// applied its action successfully. A new session is empty.
type Session struct {
	mu   sync.Mutex
	refs map[Kind]Ref
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{refs: make(map[Kind]Ref)}
}

// Remember records ref as the last entity of kind.
func (s *Session) Remember(kind Kind, ref Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs[kind] = ref
}

// Recall returns the last entity of kind, or a NotSetError.
func (s *Session) Recall(kind Kind) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.refs[kind]
	if !ok {
		return Ref{}, &errors.NotSetError{Kind: string(kind)}
	}

	return ref, nil
}

// Reset forgets every remembered entity.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.refs)
}

// Snapshot returns a copy of the remembered entities.
func (s *Session) Snapshot() map[Kind]Ref {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Kind]Ref, len(s.refs))
	for k, v := range s.refs {
		out[k] = v
	}

	return out
}
