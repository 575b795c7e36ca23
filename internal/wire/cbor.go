package wire

import (
	"fmt"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding: the same envelope always
// produces identical bytes.
var encMode cbor.EncMode

// decMode decodes untyped maps as map[string]any so decoded values look
// the same as those produced by the JSON codec.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR is a binary codec for hosts whose runtime ships a CBOR library.
type CBOR struct{}

// Name implements Codec.
func (CBOR) Name() string { return "cbor" }

// Ext implements Codec.
func (CBOR) Ext() string { return ".cbor" }

// EncodeEnvelope implements Codec.
func (CBOR) EncodeEnvelope(env *Envelope) ([]byte, error) {
	out := *env
	if out.Args == nil {
		out.Args = []any{}
	}

	return encMode.Marshal(&out)
}

// DecodeEnvelope implements Codec.
func (CBOR) DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, decodeError(data, err)
	}

	for i, arg := range env.Args {
		env.Args[i] = normalizeCBORValue(arg)
	}

	if err := validateEnvelope(&env); err != nil {
		return nil, decodeError(data, err)
	}

	return &env, nil
}

// EncodeResponse implements Codec.
func (CBOR) EncodeResponse(resp *Response) ([]byte, error) {
	data, err := encMode.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}

	return data, nil
}

// DecodeResponse implements Codec.
func (CBOR) DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := decMode.Unmarshal(data, &resp); err != nil {
		return nil, decodeError(data, err)
	}

	resp.Ret = normalizeCBORValue(resp.Ret)

	if err := validateResponse(&resp); err != nil {
		return nil, decodeError(data, err)
	}

	return &resp, nil
}

// normalizeCBORValue folds CBOR's unsigned integers into int64.
func normalizeCBORValue(v any) any {
	switch x := v.(type) {
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}

		return float64(x)
	case []any:
		for i, item := range x {
			x[i] = normalizeCBORValue(item)
		}

		return x
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeCBORValue(item)
		}

		return x
	default:
		return v
	}
}
