package script

import (
	"fmt"
	"math"
	"sort"

	"go.starlark.net/starlark"
)

// toStarlark converts a wire value to a Starlark value.
func toStarlark(v any) (starlark.Value, error) {
	switch x := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(x), nil
	case int64:
		return starlark.MakeInt64(x), nil
	case int:
		return starlark.MakeInt(x), nil
	case float64:
		return starlark.Float(x), nil
	case string:
		return starlark.String(x), nil
	case []any:
		elems := make([]starlark.Value, len(x))

		for i, e := range x {
			sv, err := toStarlark(e)
			if err != nil {
				return nil, err
			}

			elems[i] = sv
		}

		return starlark.NewList(elems), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		d := starlark.NewDict(len(x))

		for _, k := range keys {
			sv, err := toStarlark(x[k])
			if err != nil {
				return nil, err
			}

			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}

		return d, nil
	default:
		return nil, fmt.Errorf("cannot pass %T to script", v)
	}
}

// fromStarlark converts a Starlark value to a wire value.
func fromStarlark(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.Int:
		n, ok := x.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", x.String())
		}

		return n, nil
	case starlark.Float:
		f := float64(x)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("non-finite float %s", x.String())
		}

		return f, nil
	case starlark.String:
		return string(x), nil
	case *starlark.List:
		return fromIterable(x, x.Len())
	case starlark.Tuple:
		return fromIterable(x, x.Len())
	case *starlark.Dict:
		out := make(map[string]any, x.Len())

		for _, item := range x.Items() {
			k, ok := starlark.AsString(item[0])
			if !ok {
				return nil, fmt.Errorf("dict key %s is not a string", item[0].String())
			}

			val, err := fromStarlark(item[1])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}

			out[k] = val
		}

		return out, nil
	default:
		return nil, fmt.Errorf("cannot return %s from script", v.Type())
	}
}

func fromIterable(it starlark.Iterable, n int) (any, error) {
	out := make([]any, 0, n)

	iter := it.Iterate()
	defer iter.Done()

	var elem starlark.Value
	for iter.Next(&elem) {
		v, err := fromStarlark(elem)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}
