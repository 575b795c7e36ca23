package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/host-bridge-go/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type widget struct {
	name string
	gain float64
}

// widgetAPI is a small native API exercising the forwarding wrapper.
type widgetAPI struct {
	widgets []*widget
}

func (a *widgetAPI) CountWidgets() int { return len(a.widgets) }

func (a *widgetAPI) GetWidget(i int) *widget {
	if i < 0 || i >= len(a.widgets) {
		return nil
	}

	return a.widgets[i]
}

func (a *widgetAPI) GetWidgetName(w *widget) string { return w.name }

func (a *widgetAPI) SetWidgetGain(w *widget, gain float64) bool {
	w.gain = gain

	return true
}

func (a *widgetAPI) GetWidgetGain(w *widget) float64 { return w.gain }

func (a *widgetAPI) Divide(x, y float64) (float64, error) {
	if y == 0 {
		return 0, errors.New("division by zero")
	}

	return x / y, nil
}

func (a *widgetAPI) NameAndIndex(i int) (string, int) { return a.widgets[i].name, i }

func (a *widgetAPI) Sum(xs ...float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}

	return total
}

func (a *widgetAPI) Describe(w *widget) Fields {
	return Fields{"name": w.name, "gain": w.gain, "self": w}
}

func (a *widgetAPI) Explode() { panic("host object destroyed") }

func (a *widgetAPI) ListWidgets() []*widget { return a.widgets }

func newTestDispatcher(t *testing.T, dsl Table) (*Dispatcher, *Registry) {
	t.Helper()

	handles := NewHandles()
	handles.RegisterKind("Widget", (*widget)(nil))

	reg := NewRegistry(discardLogger(), handles)
	reg.RegisterMethods(&widgetAPI{widgets: []*widget{{name: "Bass"}, {name: "Drums"}}})

	return NewDispatcher(discardLogger(), reg, dsl), reg
}

func call(t *testing.T, d *Dispatcher, function string, args ...any) *wire.Response {
	t.Helper()

	if args == nil {
		args = []any{}
	}

	return d.Dispatch(context.Background(), &wire.Envelope{ID: "req", Call: function, Args: args})
}

// mapTable is a DSL table backed by a map.
type mapTable map[string]Func

func (m mapTable) Lookup(name string) (Func, bool) {
	fn, ok := m[name]

	return fn, ok
}

func TestDispatchUnknownThenValid(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	resp := call(t, d, "Frobnicate")
	require.False(t, resp.OK)
	require.Equal(t, "Unknown function: Frobnicate", resp.Error)
	require.Equal(t, "req", resp.ID)

	resp = call(t, d, "CountWidgets")
	require.True(t, resp.OK)
	require.Equal(t, int64(2), resp.Ret)
}

func TestDispatchRecoversPanic(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	resp := call(t, d, "Explode")
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "host object destroyed")

	resp = call(t, d, "CountWidgets")
	require.True(t, resp.OK, "dispatcher keeps serving after a panic")
}

func TestDispatchQueriesAreIdempotent(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	first := call(t, d, "GetWidget", int64(1))
	second := call(t, d, "GetWidget", int64(1))

	require.True(t, first.OK)
	require.Equal(t, first.Ret, second.Ret)
}

func TestDispatchForwarding(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	tests := []struct {
		name    string
		call    string
		args    []any
		want    any
		wantErr string
	}{
		{name: "handle result", call: "GetWidget", args: []any{int64(0)}, want: "Widget@1"},
		{name: "integral float for int param", call: "GetWidget", args: []any{1.0}, want: "Widget@2"},
		{name: "nil handle", call: "GetWidget", args: []any{int64(9)}, want: nil},
		{name: "handle argument", call: "GetWidgetName", args: []any{"Widget@2"}, want: "Drums"},
		{name: "int for float param", call: "Divide", args: []any{int64(3), int64(2)}, want: 1.5},
		{name: "multi-value returns first", call: "NameAndIndex", args: []any{int64(1)}, want: "Drums"},
		{name: "variadic", call: "Sum", args: []any{1.0, int64(2), 3.5}, want: 6.5},
		{name: "handle slice", call: "ListWidgets", want: []any{"Widget@1", "Widget@2"}},
		{name: "returned error", call: "Divide", args: []any{1.0, 0.0}, wantErr: "division by zero"},
		{name: "fractional float for int", call: "GetWidget", args: []any{0.5}, wantErr: "expected integer"},
		{name: "too few args", call: "Divide", args: []any{1.0}, wantErr: "expected 2 arguments, got 1"},
		{name: "too many args", call: "CountWidgets", args: []any{int64(1)}, wantErr: "expected 0 arguments, got 1"},
		{name: "unknown handle", call: "GetWidgetName", args: []any{"Widget@99"}, wantErr: "unknown handle"},
		{name: "not a handle", call: "GetWidgetName", args: []any{int64(0)}, wantErr: "expected handle"},
		{name: "wrong type", call: "Divide", args: []any{"one", 1.0}, wantErr: "cannot use string"},
	}

	// Allocate tokens in a known order.
	call(t, d, "GetWidget", int64(0))
	call(t, d, "GetWidget", int64(1))

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := call(t, d, tc.call, tc.args...)

			if tc.wantErr != "" {
				require.False(t, resp.OK)
				require.Contains(t, resp.Error, tc.wantErr)

				return
			}

			require.True(t, resp.OK, resp.Error)
			require.Equal(t, tc.want, resp.Ret)
		})
	}
}

func TestDispatchRoundTripsState(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	tok := call(t, d, "GetWidget", int64(0)).Ret

	require.True(t, call(t, d, "SetWidgetGain", tok, 0.5).OK)
	require.Equal(t, 0.5, call(t, d, "GetWidgetGain", tok).Ret)
}

func TestDispatchExtendedResults(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)

	resp := call(t, d, "Describe", "Widget@1")
	require.False(t, resp.OK, "tokens are only valid once issued")

	call(t, d, "GetWidget", int64(0))

	resp = call(t, d, "Describe", "Widget@1")
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, map[string]any{"name": "Bass", "gain": 0.0, "self": "Widget@1"}, resp.Ret)

	require.NoError(t, reg.RegisterFields("GetNameAndIndex", func(i int) (string, int) {
		return "Drums", i
	}, "name", "index"))

	resp = call(t, d, "GetNameAndIndex", int64(1))
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, map[string]any{"name": "Drums", "index": int64(1)}, resp.Ret)
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry(discardLogger(), nil)

	require.ErrorContains(t, reg.Register("x", 42), "not a function")
	require.ErrorContains(t, reg.RegisterFields("y", func() (int, int) { return 1, 2 }, "only"), "1 field names for 2 results")

	require.NoError(t, reg.Register("Now", func(ctx context.Context) (float64, error) {
		return 12.5, ctx.Err()
	}))
	require.Equal(t, []string{"Now"}, reg.Names())

	fn, ok := reg.Lookup("Now")
	require.True(t, ok)

	ret, err := fn(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 12.5, ret)
}

func TestDispatchPrefersDSLTable(t *testing.T) {
	dsl := mapTable{
		"CountWidgets": func(context.Context, []any) (any, error) { return "from dsl", nil },
	}

	d, _ := newTestDispatcher(t, dsl)

	require.Equal(t, "from dsl", call(t, d, "CountWidgets").Ret)
	require.Equal(t, "Drums", call(t, d, "GetWidgetName", call(t, d, "GetWidget", int64(1)).Ret).Ret)
}

func TestHandlePayloadMalformedRequest(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	out, err := d.HandlePayload(context.Background(), wire.JSON{}, []byte(`{"args":[1]}`))
	require.NoError(t, err)

	resp, err := wire.JSON{}.DecodeResponse(out)
	require.NoError(t, err)
	require.False(t, resp.OK)
	require.Empty(t, resp.ID)
	require.Contains(t, resp.Error, "malformed request")
}

func TestHandles(t *testing.T) {
	h := NewHandles()
	h.RegisterKind("Widget", (*widget)(nil))

	a, b := &widget{name: "a"}, &widget{name: "b"}

	ta, err := h.Token(a)
	require.NoError(t, err)
	require.Equal(t, "Widget@1", ta)

	tb, err := h.Token(b)
	require.NoError(t, err)
	require.Equal(t, "Widget@2", tb)

	again, err := h.Token(a)
	require.NoError(t, err)
	require.Equal(t, ta, again)

	obj, err := h.Resolve(tb)
	require.NoError(t, err)
	require.Same(t, b, obj)

	h.Forget(a)

	_, err = h.Resolve(ta)
	require.ErrorContains(t, err, "unknown handle")

	tc, err := h.Token(a)
	require.NoError(t, err)
	require.Equal(t, "Widget@3", tc, "tokens are never reissued")

	_, err = h.Token(42)
	require.ErrorContains(t, err, "not a registered handle kind")

	_, err = h.Resolve("garbage")
	require.ErrorContains(t, err, "malformed handle")
}

func TestIsToken(t *testing.T) {
	require.True(t, IsToken("MediaTrack@12"))
	require.False(t, IsToken("MediaTrack@"))
	require.False(t, IsToken("@3"))
	require.False(t, IsToken("Bass"))
	require.False(t, IsToken("user@example"))
}

func TestLoopback(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	lb := NewLoopback(d, wire.CBOR{})

	_, err := lb.Call(context.Background(), "CountWidgets", nil)
	require.Error(t, err, "calls before Start fail")

	require.NoError(t, lb.Start(context.Background()))

	resp, err := lb.Call(context.Background(), "Divide", []any{9, 3})
	require.NoError(t, err)
	require.Equal(t, 3.0, resp.Ret)

	require.NoError(t, lb.Close())
}
