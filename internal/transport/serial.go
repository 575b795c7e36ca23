package transport

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// Serial queues callers above a transport so at most one call is outstanding
// on the channel. Waiting callers honour their context while queued.
type Serial struct {
	log     *slog.Logger
	next    config.Transport
	sem     *semaphore.Weighted
	waiting atomic.Int64
}

// Compile-time verification that Serial implements the Transport interface.
var _ config.Transport = (*Serial)(nil)

// NewSerial wraps next in a single-slot queue.
func NewSerial(log *slog.Logger, next config.Transport) *Serial {
	return &Serial{
		log:  log.With("component", "serial_transport"),
		next: next,
		sem:  semaphore.NewWeighted(1),
	}
}

// Start starts the wrapped transport.
func (s *Serial) Start(ctx context.Context) error {
	return s.next.Start(ctx)
}

// Call waits for the channel to be free, then forwards the call.
func (s *Serial) Call(ctx context.Context, function string, args []any) (*wire.Response, error) {
	if queued := s.waiting.Add(1); queued > 1 {
		s.log.Debug("Call queued behind outstanding request", "call", function, "queued", queued-1)
	}

	err := s.sem.Acquire(ctx, 1)

	s.waiting.Add(-1)

	if err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	return s.next.Call(ctx, function, args)
}

// Close closes the wrapped transport.
func (s *Serial) Close() error {
	return s.next.Close()
}
