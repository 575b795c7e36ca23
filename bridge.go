package hostbridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/dsl"
	"github.com/wagiedev/host-bridge-go/internal/host"
	"github.com/wagiedev/host-bridge-go/internal/transport"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// Re-export DSL types from internal package.

// Commands runs DSL commands and owns the session context ("last" track,
// item, marker and region).
type Commands = dsl.Commands

// Result is the uniform outcome of a DSL command.
type Result = dsl.Result

// Ref identifies a resolved host entity.
type Ref = dsl.Ref

// Change is a before/after pair in Result.Changes.
type Change = dsl.Change

// CallRecord describes one bridge call made on behalf of a command.
type CallRecord = dsl.CallRecord

// HealthReport is the Data of a health Result.
type HealthReport = dsl.HealthReport

// Note is a MIDI note passed to ItemInsertMIDI.
type Note = dsl.Note

// ItemInfo is the Data of loop_create and item_insert_midi Results.
type ItemInfo = dsl.ItemInfo

// Bridge is a started connection to a host dispatcher.
//
// Calls are serialized: at most one request is outstanding on the channel,
// and concurrent callers queue in arrival order. A Bridge is safe for
// concurrent use.
type Bridge struct {
	log       *slog.Logger
	options   *Options
	transport *transport.Serial
	client    *dsl.Client
	commands  *dsl.Commands

	closeOnce sync.Once
	closeErr  error
}

// Open builds the transport selected by opts, starts it, and returns a
// ready Bridge. The caller must Close it.
func Open(ctx context.Context, opts ...Option) (*Bridge, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	options, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	if options.Transport == nil && options.TransportKind == config.TransportEmbedded {
		t, err := embeddedTransport(log, options)
		if err != nil {
			return nil, err
		}

		options.Transport = t
	}

	t, err := transport.New(log, options)
	if err != nil {
		return nil, err
	}

	if err := t.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s transport: %w", options.TransportKind, err)
	}

	log.Debug("Bridge open", "transport", options.TransportKind, "codec", options.Codec, "timeout", options.Timeout)

	client := dsl.NewClient(log, t)

	return &Bridge{
		log:       log.With("component", "bridge"),
		options:   options,
		transport: t,
		client:    client,
		commands:  dsl.NewCommands(log, client),
	}, nil
}

// embeddedTransport starts the demo host in-process and returns a loopback
// to its dispatcher.
func embeddedTransport(log *slog.Logger, options *Options) (Transport, error) {
	codec, err := wire.ByName(options.Codec)
	if err != nil {
		return nil, err
	}

	h, err := host.New(log, host.Demo(), options.Scripts...)
	if err != nil {
		return nil, fmt.Errorf("embedded host: %w", err)
	}

	return h.Loopback(codec), nil
}

// Call invokes a host function by name with positional args and returns
// its result. Host objects come back as handle tokens and may be passed
// back as args.
//
// An {ok: false} response becomes an *UnknownFunctionError or an
// *InvocationError; a missing response becomes a *TimeoutError.
func (b *Bridge) Call(ctx context.Context, function string, args ...any) (any, error) {
	return b.client.Call(ctx, function, args...)
}

// Commands returns the DSL command layer.
func (b *Bridge) Commands() *Commands {
	return b.commands
}

// Health checks the host: reachability, the DSL function table, and the
// native API.
func (b *Bridge) Health(ctx context.Context) *Result {
	return b.commands.Health(ctx)
}

// Options returns the resolved options the bridge was opened with.
func (b *Bridge) Options() Options {
	return *b.options
}

// Close releases the transport. It is safe to call more than once.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.transport.Close()
		b.log.Debug("Bridge closed")
	})

	return b.closeErr
}

// WithBridge manages bridge lifecycle with automatic cleanup.
//
// This helper opens a bridge with the provided options, executes the
// callback, and ensures Close is called when done. If Close fails, a
// warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := hostbridge.WithBridge(ctx, func(b *hostbridge.Bridge) error {
//	    res := b.Commands().TrackMute(ctx, "drums", nil)
//	    if !res.Success {
//	        return errors.New(res.Error)
//	    }
//	    return nil
//	},
//	    hostbridge.WithLogger(log),
//	    hostbridge.WithFileBridge(""),
//	)
func WithBridge(ctx context.Context, fn func(*Bridge) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b, err := Open(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to open bridge: %w", err)
	}

	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			b.log.Warn("failed to close bridge", "error", closeErr)
		}
	}()

	return fn(b)
}
