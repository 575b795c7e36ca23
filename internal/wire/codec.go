package wire

import (
	"fmt"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

// maxRawData bounds how much of an undecodable payload is kept in a DecodeError.
const maxRawData = 512

// Codec serializes envelopes and responses.
type Codec interface {
	// Name identifies the codec in configuration ("json", "cbor").
	Name() string
	// Ext is the file extension used by the file-drop transport.
	Ext() string

	EncodeEnvelope(env *Envelope) ([]byte, error)
	DecodeEnvelope(data []byte) (*Envelope, error)
	EncodeResponse(resp *Response) ([]byte, error)
	DecodeResponse(data []byte) (*Response, error)
}

// Compile-time verification that all codecs implement Codec.
var (
	_ Codec = JSON{}
	_ Codec = CBOR{}
)

// ByName returns the codec registered under name. An empty name selects JSON.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "cbor":
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

func decodeError(data []byte, err error) error {
	raw := data
	if len(raw) > maxRawData {
		raw = raw[:maxRawData]
	}

	return &errors.DecodeError{RawData: string(raw), Err: err}
}

// validateEnvelope enforces the envelope invariants after decoding.
func validateEnvelope(env *Envelope) error {
	if env.Call == "" {
		return fmt.Errorf("envelope missing call")
	}

	if env.Args == nil {
		env.Args = []any{}
	}

	return nil
}

// validateResponse enforces that Error is present iff OK is false.
func validateResponse(resp *Response) error {
	if resp.OK && resp.Error != "" {
		return fmt.Errorf("ok response carries error %q", resp.Error)
	}

	if !resp.OK && resp.Error == "" {
		return fmt.Errorf("failed response missing error message")
	}

	return nil
}
