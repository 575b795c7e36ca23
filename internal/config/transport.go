package config

import (
	"context"

	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// Transport carries one envelope to the remote dispatcher and waits for its
// response.
//
// Implementations keep at most one call outstanding per channel and are not
// safe for overlapping calls; concurrent callers must be queued above the
// transport (see transport.Serial).
type Transport interface {
	// Start acquires the channel resource (socket, bridge directory).
	Start(ctx context.Context) error

	// Call sends function and its positional args and blocks until the
	// correlated response arrives, the bounded wait expires, or ctx is done.
	Call(ctx context.Context, function string, args []any) (*wire.Response, error)

	// Close releases the channel resource.
	Close() error
}
