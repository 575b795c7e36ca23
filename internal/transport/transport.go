package transport

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// New builds the transport selected by opts, wrapped in a Serial queue.
// An injected opts.Transport takes precedence over the built-in variants.
func New(log *slog.Logger, opts *config.Options) (*Serial, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.Transport != nil {
		return NewSerial(log, opts.Transport), nil
	}

	codec, err := wire.ByName(opts.Codec)
	if err != nil {
		return nil, err
	}

	switch opts.TransportKind {
	case config.TransportUDP, "":
		return NewSerial(log, NewUDPTransport(log, codec, opts)), nil
	case config.TransportFile:
		return NewSerial(log, NewFileTransport(log, codec, opts)), nil
	case config.TransportEmbedded:
		return nil, fmt.Errorf("embedded transport needs an in-process host transport")
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.TransportKind)
	}
}

// newRequestID creates a unique, time-ordered request ID using ULID.
func newRequestID() string {
	return ulid.Make().String()
}
