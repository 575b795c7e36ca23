package remote

import (
	"context"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/errors"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// Loopback is an in-process transport that hands envelopes straight to a
// dispatcher. Envelopes and responses still pass through codec, so callers
// see exactly the values a remote client would.
type Loopback struct {
	d       *Dispatcher
	codec   wire.Codec
	started bool
}

// Compile-time verification that Loopback implements the Transport interface.
var _ config.Transport = (*Loopback)(nil)

// NewLoopback creates an in-process transport to d.
func NewLoopback(d *Dispatcher, codec wire.Codec) *Loopback {
	if codec == nil {
		codec = wire.JSON{}
	}

	return &Loopback{d: d, codec: codec}
}

// Start implements config.Transport.
func (l *Loopback) Start(context.Context) error {
	l.started = true

	return nil
}

// Call implements config.Transport.
func (l *Loopback) Call(ctx context.Context, function string, args []any) (*wire.Response, error) {
	if !l.started {
		return nil, errors.ErrTransportClosed
	}

	data, err := l.codec.EncodeEnvelope(&wire.Envelope{Call: function, Args: args})
	if err != nil {
		return nil, err
	}

	reply, err := l.d.HandlePayload(ctx, l.codec, data)
	if err != nil {
		return nil, err
	}

	return l.codec.DecodeResponse(reply)
}

// Close implements config.Transport.
func (l *Loopback) Close() error {
	l.started = false

	return nil
}
