package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JSON is the text codec understood by both the bridge client and the
// host's scripting runtime.
type JSON struct{}

// Name implements Codec.
func (JSON) Name() string { return "json" }

// Ext implements Codec.
func (JSON) Ext() string { return ".json" }

// EncodeEnvelope implements Codec.
func (JSON) EncodeEnvelope(env *Envelope) ([]byte, error) {
	args, err := encodeJSONValue(env.Args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}

	if args == nil {
		args = []any{}
	}

	return json.Marshal(struct {
		ID   string `json:"id,omitempty"`
		Call string `json:"call"`
		Args any    `json:"args"`
	}{ID: env.ID, Call: env.Call, Args: args})
}

// DecodeEnvelope implements Codec.
func (JSON) DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := unmarshalJSON(data, &env); err != nil {
		return nil, decodeError(data, err)
	}

	for i, arg := range env.Args {
		env.Args[i] = decodeJSONValue(arg)
	}

	if err := validateEnvelope(&env); err != nil {
		return nil, decodeError(data, err)
	}

	return &env, nil
}

// EncodeResponse implements Codec.
func (JSON) EncodeResponse(resp *Response) ([]byte, error) {
	ret, err := encodeJSONValue(resp.Ret)
	if err != nil {
		return nil, fmt.Errorf("encode ret: %w", err)
	}

	return json.Marshal(struct {
		ID    string `json:"id,omitempty"`
		OK    bool   `json:"ok"`
		Ret   any    `json:"ret,omitempty"`
		Error string `json:"error,omitempty"`
	}{ID: resp.ID, OK: resp.OK, Ret: ret, Error: resp.Error})
}

// DecodeResponse implements Codec.
func (JSON) DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := unmarshalJSON(data, &resp); err != nil {
		return nil, decodeError(data, err)
	}

	resp.Ret = decodeJSONValue(resp.Ret)

	if err := validateResponse(&resp); err != nil {
		return nil, decodeError(data, err)
	}

	return &resp, nil
}

func unmarshalJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}

	return nil
}

// encodeJSONValue rewrites floats as json.Number literals that always carry
// a fraction or exponent, so 1.0 is not read back as the integer 1.
func encodeJSONValue(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return floatNumber(x)
	case float32:
		return floatNumber(float64(x))
	case []any:
		if x == nil {
			return nil, nil
		}

		out := make([]any, len(x))
		for i, item := range x {
			enc, err := encodeJSONValue(item)
			if err != nil {
				return nil, err
			}

			out[i] = enc
		}

		return out, nil
	case []float64:
		out := make([]any, len(x))
		for i, item := range x {
			enc, err := floatNumber(item)
			if err != nil {
				return nil, err
			}

			out[i] = enc
		}

		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			enc, err := encodeJSONValue(item)
			if err != nil {
				return nil, err
			}

			out[k] = enc
		}

		return out, nil
	default:
		return v, nil
	}
}

func floatNumber(f float64) (json.Number, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("unsupported float value %v", f)
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return json.Number(s), nil
}

// decodeJSONValue converts json.Number leaves into int64 or float64
// according to the literal's spelling.
func decodeJSONValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i
			}
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return s
		}

		return f
	case []any:
		for i, item := range x {
			x[i] = decodeJSONValue(item)
		}

		return x
	case map[string]any:
		for k, item := range x {
			x[k] = decodeJSONValue(item)
		}

		return x
	default:
		return v
	}
}
