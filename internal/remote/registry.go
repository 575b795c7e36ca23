package remote

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"sync"
)

// Func is the uniform shape every callable is invoked through.
type Func func(ctx context.Context, args []any) (any, error)

// Table looks up callables by name.
type Table interface {
	Lookup(name string) (Func, bool)
}

// Fields is a named-field result. A native function returning Fields
// replies with a map instead of a single primitive.
type Fields map[string]any

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Registry is the native API registry: a name→callable map built once at
// startup and invoked through a reflective forwarding wrapper.
type Registry struct {
	log     *slog.Logger
	handles *Handles

	mu    sync.RWMutex
	funcs map[string]*native
}

// Compile-time verification that Registry implements Table.
var _ Table = (*Registry)(nil)

// native is one registered Go function.
type native struct {
	name   string
	fn     reflect.Value
	fields []string
}

// NewRegistry creates an empty registry sharing the given handle table.
func NewRegistry(log *slog.Logger, handles *Handles) *Registry {
	if handles == nil {
		handles = NewHandles()
	}

	return &Registry{
		log:     log.With("component", "native_registry"),
		handles: handles,
		funcs:   make(map[string]*native, 64),
	}
}

// Handles returns the registry's handle table.
func (r *Registry) Handles() *Handles {
	return r.handles
}

// Register adds fn under name. fn must be a func value; an optional leading
// context.Context parameter receives the call context and an optional
// trailing error result is reported as a failure.
func (r *Registry) Register(name string, fn any) error {
	return r.RegisterFields(name, fn)
}

// RegisterFields adds fn in extended mode: its results (excluding a
// trailing error) are returned as a map keyed by fields, in order.
func (r *Registry) RegisterFields(name string, fn any, fields ...string) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("register %s: not a function (%T)", name, fn)
	}

	if len(fields) > 0 && len(fields) != valueResults(v.Type()) {
		return fmt.Errorf("register %s: %d field names for %d results", name, len(fields), valueResults(v.Type()))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.funcs[name] = &native{name: name, fn: v, fields: fields}

	return nil
}

// RegisterMethods registers every exported method of api under its method
// name. It returns the number of functions registered.
func (r *Registry) RegisterMethods(api any) int {
	v := reflect.ValueOf(api)
	t := v.Type()

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range t.NumMethod() {
		m := t.Method(i)
		r.funcs[m.Name] = &native{name: m.Name, fn: v.Method(i)}
	}

	r.log.Debug("Registered native API", "type", t.String(), "count", t.NumMethod())

	return t.NumMethod()
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Lookup implements Table.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	n, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return func(ctx context.Context, args []any) (any, error) {
		return r.invoke(ctx, n, args)
	}, true
}

func (r *Registry) invoke(ctx context.Context, n *native, args []any) (any, error) {
	t := n.fn.Type()

	in, err := r.convertArgs(ctx, t, args)
	if err != nil {
		return nil, err
	}

	out := n.fn.Call(in)

	if k := len(out); k > 0 && t.Out(k-1) == errorType {
		if errV := out[k-1]; !errV.IsNil() {
			return nil, errV.Interface().(error)
		}

		out = out[:k-1]
	}

	if len(n.fields) > 0 {
		result := make(map[string]any, len(out))

		for i, name := range n.fields {
			v, err := r.toWire(out[i])
			if err != nil {
				return nil, err
			}

			result[name] = v
		}

		return result, nil
	}

	if len(out) == 0 {
		return nil, nil
	}

	// Multi-value returns collapse to the first value.
	return r.toWire(out[0])
}

func (r *Registry) convertArgs(ctx context.Context, t reflect.Type, args []any) ([]reflect.Value, error) {
	params := make([]reflect.Type, 0, t.NumIn())
	for i := range t.NumIn() {
		params = append(params, t.In(i))
	}

	in := make([]reflect.Value, 0, len(params))

	if len(params) > 0 && params[0] == contextType {
		in = append(in, reflect.ValueOf(&ctx).Elem())
		params = params[1:]
	}

	fixed := len(params)
	if t.IsVariadic() {
		fixed--
	}

	if len(args) < fixed || (!t.IsVariadic() && len(args) > fixed) {
		return nil, fmt.Errorf("expected %d arguments, got %d", fixed, len(args))
	}

	for i, arg := range args {
		var pt reflect.Type
		if i < fixed {
			pt = params[i]
		} else {
			pt = params[fixed].Elem()
		}

		v, err := r.fromWire(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}

		in = append(in, v)
	}

	return in, nil
}

// fromWire converts a decoded wire value to a parameter of type t.
func (r *Registry) fromWire(arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("nil is not a valid %s", t)
		}
	}

	if _, isHandle := r.handles.KindOf(t); isHandle {
		tok, ok := arg.(string)
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected handle, got %T", arg)
		}

		obj, err := r.handles.Resolve(tok)
		if err != nil {
			return reflect.Value{}, err
		}

		v := reflect.ValueOf(obj)
		if !v.Type().AssignableTo(t) {
			return reflect.Value{}, fmt.Errorf("handle %s is not a %s", tok, t)
		}

		return v, nil
	}

	if t.Kind() == reflect.Interface {
		return reflect.ValueOf(arg), nil
	}

	av := reflect.ValueOf(arg)

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(arg)
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(arg)
		if err != nil {
			return reflect.Value{}, err
		}

		if n < 0 {
			return reflect.Value{}, fmt.Errorf("expected non-negative integer, got %d", n)
		}

		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		switch x := arg.(type) {
		case float64:
			return reflect.ValueOf(x).Convert(t), nil
		case int64:
			return reflect.ValueOf(float64(x)).Convert(t), nil
		case int:
			return reflect.ValueOf(float64(x)).Convert(t), nil
		}
	case reflect.Bool:
		if b, ok := arg.(bool); ok {
			return reflect.ValueOf(b), nil
		}
	case reflect.String:
		if s, ok := arg.(string); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}
	case reflect.Slice:
		list, ok := arg.([]any)
		if !ok {
			break
		}

		out := reflect.MakeSlice(t, len(list), len(list))

		for i, elem := range list {
			ev, err := r.fromWire(elem, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}

			out.Index(i).Set(ev)
		}

		return out, nil
	case reflect.Map:
		if av.Type().AssignableTo(t) {
			return av, nil
		}
	}

	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
}

func toInt(arg any) (int64, error) {
	switch x := arg.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("expected integer, got %v", x)
		}

		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}

		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", arg)
	}
}

// toWire coerces a result to a value the codecs can carry.
func (r *Registry) toWire(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if _, isHandle := r.handles.KindOf(v.Type()); isHandle {
		tok, err := r.handles.Token(v.Interface())
		if err != nil || tok == "" {
			return nil, err
		}

		return tok, nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}

		if v.Kind() == reflect.Interface {
			return r.toWire(v.Elem())
		}

		return nil, fmt.Errorf("cannot return %s across the bridge", v.Type())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return []any{}, nil
		}

		out := make([]any, v.Len())

		for i := range v.Len() {
			elem, err := r.toWire(v.Index(i))
			if err != nil {
				return nil, err
			}

			out[i] = elem
		}

		return out, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot return %s across the bridge", v.Type())
		}

		out := make(map[string]any, v.Len())

		iter := v.MapRange()
		for iter.Next() {
			elem, err := r.toWire(iter.Value())
			if err != nil {
				return nil, err
			}

			out[iter.Key().String()] = elem
		}

		return out, nil
	default:
		return nil, fmt.Errorf("cannot return %s across the bridge", v.Type())
	}
}

// valueResults counts the results of t that are not a trailing error.
func valueResults(t reflect.Type) int {
	n := t.NumOut()
	if n > 0 && t.Out(n-1) == errorType {
		n--
	}

	return n
}
