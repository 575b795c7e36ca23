package script

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/wagiedev/host-bridge-go/internal/remote"
)

// maxExecutionSteps bounds a single DSL call so a runaway loop cannot wedge
// the dispatcher.
const maxExecutionSteps = 10_000_000

//go:embed dsl.star
var defaultScript []byte

// Source is one Starlark script.
type Source struct {
	Name string
	Code []byte
}

// Default returns the built-in DSL script.
func Default() Source {
	return Source{Name: "dsl.star", Code: defaultScript}
}

// ReadSource loads a script from disk.
func ReadSource(path string) (Source, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read script: %w", err)
	}

	return Source{Name: path, Code: code}, nil
}

// Runtime holds the DSL functions defined by the loaded scripts.
type Runtime struct {
	log   *slog.Logger
	funcs map[string]*starlark.Function
}

// Compile-time verification that Runtime implements remote.Table.
var _ remote.Table = (*Runtime)(nil)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Load executes sources in order. A later script may redefine a function
// of an earlier one. apiNames is reported by dir(api) and may be nil.
func Load(log *slog.Logger, native remote.Table, apiNames []string, sources ...Source) (*Runtime, error) {
	r := &Runtime{
		log:   log.With("component", "script_runtime"),
		funcs: make(map[string]*starlark.Function),
	}

	predeclared := starlark.StringDict{
		"api": &apiModule{native: native, names: apiNames},
	}

	for _, src := range sources {
		thread := r.newThread(context.Background(), "load "+src.Name)

		globals, err := starlark.ExecFileOptions(fileOptions, thread, src.Name, src.Code, predeclared)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", src.Name, err)
		}

		count := 0

		for name, v := range globals {
			fn, ok := v.(*starlark.Function)
			if !ok || !exported(name) {
				continue
			}

			r.funcs[name] = fn
			count++
		}

		r.log.Info("Loaded DSL script", "script", src.Name, "functions", count)
	}

	return r, nil
}

// Names returns the DSL function names in sorted order.
func (r *Runtime) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Lookup implements remote.Table.
func (r *Runtime) Lookup(name string) (remote.Func, bool) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, false
	}

	return func(ctx context.Context, args []any) (any, error) {
		return r.call(ctx, fn, args)
	}, true
}

func (r *Runtime) call(ctx context.Context, fn *starlark.Function, args []any) (any, error) {
	thread := r.newThread(ctx, fn.Name())

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(ctx.Err().Error())
	})
	defer stop()

	sargs := make(starlark.Tuple, len(args))

	for i, a := range args {
		v, err := toStarlark(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}

		sargs[i] = v
	}

	ret, err := starlark.Call(thread, fn, sargs, nil)
	if err != nil {
		return nil, err
	}

	return fromStarlark(ret)
}

func (r *Runtime) newThread(ctx context.Context, name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			r.log.Info(msg, "thread", name)
		},
	}

	thread.SetLocal(contextKey, ctx)
	thread.SetMaxExecutionSteps(maxExecutionSteps)

	return thread
}

func exported(name string) bool {
	for _, c := range name {
		return unicode.IsUpper(c)
	}

	return false
}
