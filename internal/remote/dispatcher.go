package remote

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/wagiedev/host-bridge-go/internal/errors"
	"github.com/wagiedev/host-bridge-go/internal/wire"
)

// Dispatcher resolves envelope call names and invokes them under a guard.
//
// Dispatch is serialized: the host runtime executes one call at a time even
// when several serve loops share a dispatcher.
type Dispatcher struct {
	log    *slog.Logger
	dsl    Table
	native Table

	mu sync.Mutex
}

// NewDispatcher creates a dispatcher. dsl is consulted before native; either
// may be nil.
func NewDispatcher(log *slog.Logger, native, dsl Table) *Dispatcher {
	return &Dispatcher{
		log:    log.With("component", "dispatcher"),
		dsl:    dsl,
		native: native,
	}
}

// Resolve finds the callable for name in resolution order.
func (d *Dispatcher) Resolve(name string) (Func, bool) {
	if d.dsl != nil {
		if fn, ok := d.dsl.Lookup(name); ok {
			return fn, true
		}
	}

	if d.native != nil {
		if fn, ok := d.native.Lookup(name); ok {
			return fn, true
		}
	}

	return nil, false
}

// Dispatch executes env and always returns a response; failures of any
// kind are reported as ok=false.
func (d *Dispatcher) Dispatch(ctx context.Context, env *wire.Envelope) *wire.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	fn, ok := d.Resolve(env.Call)
	if !ok {
		d.log.Debug("Unknown function", "call", env.Call)

		return wire.Failure(env.ID, (&errors.UnknownFunctionError{Function: env.Call}).Error())
	}

	start := time.Now()

	ret, err := d.invoke(ctx, fn, env)
	if err != nil {
		d.log.Debug("Call failed", "call", env.Call, "error", err, "duration", time.Since(start))

		return wire.Failure(env.ID, err.Error())
	}

	d.log.Debug("Call completed", "call", env.Call, "duration", time.Since(start))

	return wire.Success(env.ID, ret)
}

func (d *Dispatcher) invoke(ctx context.Context, fn Func, env *wire.Envelope) (ret any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("Recovered panic in call", "call", env.Call, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%v", r)
		}
	}()

	return fn(ctx, env.Args)
}

// HandlePayload decodes one request payload, dispatches it and encodes the
// reply. An undecodable request is answered with an uncorrelated failure.
func (d *Dispatcher) HandlePayload(ctx context.Context, codec wire.Codec, data []byte) ([]byte, error) {
	var resp *wire.Response

	env, err := codec.DecodeEnvelope(data)
	if err != nil {
		d.log.Warn("Malformed request", "error", err)
		resp = wire.Failure("", "malformed request: "+err.Error())
	} else {
		resp = d.Dispatch(ctx, env)
	}

	out, err := codec.EncodeResponse(resp)
	if err != nil {
		// The result itself could not be encoded; report that instead.
		d.log.Warn("Unencodable result", "error", err)

		return codec.EncodeResponse(wire.Failure(resp.ID, "encode result: "+err.Error()))
	}

	return out, nil
}
