package wire

// Envelope is a request to invoke a named function with positional arguments.
type Envelope struct {
	// ID correlates the response with this request. Optional on the wire.
	ID string `json:"id,omitempty" cbor:"id,omitempty"`

	// Call is the target function name.
	Call string `json:"call" cbor:"call"`

	// Args must match the target function's positional signature.
	Args []any `json:"args" cbor:"args"`
}

// Response is the uniform reply to an Envelope.
//
// Error is non-empty iff OK is false. Ret is nil for void calls and may
// hold either a primitive or a named-field map.
type Response struct {
	ID    string `json:"id,omitempty" cbor:"id,omitempty"`
	OK    bool   `json:"ok" cbor:"ok"`
	Ret   any    `json:"ret,omitempty" cbor:"ret,omitempty"`
	Error string `json:"error,omitempty" cbor:"error,omitempty"`
}

// Success builds an ok response.
func Success(id string, ret any) *Response {
	return &Response{ID: id, OK: true, Ret: ret}
}

// Failure builds an error response.
func Failure(id, message string) *Response {
	if message == "" {
		message = "unknown error"
	}

	return &Response{ID: id, OK: false, Error: message}
}

// Field returns a named field of a map-valued Ret.
func (r *Response) Field(name string) (any, bool) {
	fields, ok := r.Ret.(map[string]any)
	if !ok {
		return nil, false
	}

	v, ok := fields[name]

	return v, ok
}
