package script

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/wagiedev/host-bridge-go/internal/remote"
)

// contextKey is the thread-local key holding the call context.
const contextKey = "context"

// apiModule exposes the native registry to scripts as attribute lookups.
type apiModule struct {
	native remote.Table
	names  []string
}

var _ starlark.HasAttrs = (*apiModule)(nil)

func (m *apiModule) String() string        { return "<module api>" }
func (m *apiModule) Type() string          { return "module" }
func (m *apiModule) Freeze()               {}
func (m *apiModule) Truth() starlark.Bool  { return starlark.True }
func (m *apiModule) AttrNames() []string   { return m.names }
func (m *apiModule) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: module") }

// Attr returns a builtin forwarding to the native function of that name.
// Unknown names yield nil, which Starlark reports as a missing attribute.
func (m *apiModule) Attr(name string) (starlark.Value, error) {
	fn, ok := m.native.Lookup(name)
	if !ok {
		return nil, nil
	}

	return starlark.NewBuiltin("api."+name, func(
		thread *starlark.Thread,
		_ *starlark.Builtin,
		args starlark.Tuple,
		kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: keyword arguments are not supported", name)
		}

		wireArgs := make([]any, len(args))

		for i, a := range args {
			v, err := fromStarlark(a)
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
			}

			wireArgs[i] = v
		}

		ret, err := fn(threadContext(thread), wireArgs)
		if err != nil {
			return nil, err
		}

		return toStarlark(ret)
	}), nil
}

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextKey).(context.Context); ok {
		return ctx
	}

	return context.Background()
}
