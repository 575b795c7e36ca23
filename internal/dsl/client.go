package dsl

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/host-bridge-go/internal/config"
	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// Caller performs one synchronous bridge call and returns its ret value.
type Caller interface {
	Call(ctx context.Context, function string, args ...any) (any, error)
}

// CallRecord describes one bridge call made on behalf of a command.
type CallRecord struct {
	Function  string  `json:"function"`
	Args      []any   `json:"args"`
	OK        bool    `json:"ok"`
	Error     string  `json:"error,omitempty"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

// Client adapts a transport to Caller, turning {ok:false} responses into
// dispatch or invocation errors.
type Client struct {
	log       *slog.Logger
	transport config.Transport
}

// Compile-time verification that Client implements Caller.
var _ Caller = (*Client)(nil)

// NewClient creates a client over t.
func NewClient(log *slog.Logger, t config.Transport) *Client {
	return &Client{
		log:       log.With("component", "dsl_client"),
		transport: t,
	}
}

// Call implements Caller.
func (c *Client) Call(ctx context.Context, function string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}

	start := time.Now()
	resp, err := c.transport.Call(ctx, function, args)

	rec := CallRecord{
		Function:  function,
		Args:      args,
		ElapsedMS: float64(time.Since(start).Microseconds()) / 1000,
	}

	defer func() { recordCall(ctx, rec) }()

	if err != nil {
		rec.Error = err.Error()

		return nil, err
	}

	if !resp.OK {
		rec.Error = resp.Error
		c.log.Debug("Remote call failed", "call", function, "error", resp.Error)

		return nil, errors.FromRemote(function, resp.Error)
	}

	rec.OK = true

	return resp.Ret, nil
}

type recorderKey struct{}

// recorder collects the calls made, and the entities resolved, while
// running one command.
type recorder struct {
	mu    sync.Mutex
	calls []CallRecord
	refs  []Ref
}

func withRecorder(ctx context.Context) (context.Context, *recorder) {
	rec := &recorder{}

	return context.WithValue(ctx, recorderKey{}, rec), rec
}

func recordCall(ctx context.Context, call CallRecord) {
	rec, ok := ctx.Value(recorderKey{}).(*recorder)
	if !ok {
		return
	}

	rec.mu.Lock()
	rec.calls = append(rec.calls, call)
	rec.mu.Unlock()
}

// noteResolved records a ref the command resolved on the way to its
// target, e.g. the marker a range started from. The command remembers it
// only if it succeeds.
func noteResolved(ctx context.Context, ref Ref) {
	rec, ok := ctx.Value(recorderKey{}).(*recorder)
	if !ok {
		return
	}

	rec.mu.Lock()
	rec.refs = append(rec.refs, ref)
	rec.mu.Unlock()
}

func (r *recorder) resolved() []Ref {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Ref(nil), r.refs...)
}

func (r *recorder) snapshot() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]CallRecord(nil), r.calls...)
}

// decodeRet converts a loosely typed ret value into out.
func decodeRet(ret any, out any) error {
	data, err := json.Marshal(ret)
	if err != nil {
		return &errors.DecodeError{Err: err}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &errors.DecodeError{RawData: string(data), Err: err}
	}

	return nil
}

// callInto performs a call and decodes its ret into out.
func callInto(ctx context.Context, c Caller, out any, function string, args ...any) error {
	ret, err := c.Call(ctx, function, args...)
	if err != nil {
		return err
	}

	return decodeRet(ret, out)
}
