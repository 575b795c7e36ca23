package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Stage identifies which layer of the bridge produced a failure.
type Stage string

const (
	// StageTransport covers timeouts, malformed payloads and channel I/O.
	StageTransport Stage = "transport"
	// StageDispatch covers unknown function names.
	StageDispatch Stage = "dispatch"
	// StageInvocation covers failures raised by the invoked function itself.
	StageInvocation Stage = "invocation"
	// StageResolution covers unmatched references and empty session recalls.
	StageResolution Stage = "resolution"
	// StageValidation covers parameter tokens rejected by a value normalizer.
	StageValidation Stage = "validation"
)

// UnknownFunctionPrefix starts the error message of a dispatch failure on the wire.
const UnknownFunctionPrefix = "Unknown function: "

// BridgeError is the base interface for all bridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
	Stage() Stage
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*TimeoutError)(nil)
	_ BridgeError = (*DecodeError)(nil)
	_ BridgeError = (*ChannelError)(nil)
	_ BridgeError = (*UnknownFunctionError)(nil)
	_ BridgeError = (*InvocationError)(nil)
	_ BridgeError = (*NotFoundError)(nil)
	_ BridgeError = (*AmbiguousError)(nil)
	_ BridgeError = (*NotSetError)(nil)
	_ BridgeError = (*ValidationError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrTimeout indicates no response arrived within the bounded wait.
	ErrTimeout = errors.New("timeout waiting for remote response")

	// ErrMalformedResponse indicates the response payload could not be decoded.
	ErrMalformedResponse = errors.New("malformed response payload")

	// ErrTransportClosed indicates the transport has been closed.
	ErrTransportClosed = errors.New("transport closed")

	// ErrUnknownFunction indicates the remote side has no function with the requested name.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrNotFound indicates a reference matched no entity.
	ErrNotFound = errors.New("no matching entity")

	// ErrAmbiguous indicates a reference matched several entities equally well.
	ErrAmbiguous = errors.New("ambiguous reference")

	// ErrNotSet indicates the session context has nothing remembered for a kind.
	ErrNotSet = errors.New("no previous reference")

	// ErrInvalidValue indicates a value normalizer rejected its input.
	ErrInvalidValue = errors.New("invalid value")
)

// TimeoutError indicates the bounded wait for a response expired.
// The remote side may still have executed the call.
type TimeoutError struct {
	Function string
	Timeout  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s after %s", e.Function, ErrTimeout, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// IsBridgeError implements BridgeError.
func (e *TimeoutError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *TimeoutError) Stage() Stage { return StageTransport }

// DecodeError indicates a payload could not be decoded.
// This error preserves the raw data that failed to parse.
type DecodeError struct {
	RawData string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedResponse, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }

// IsBridgeError implements BridgeError.
func (e *DecodeError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *DecodeError) Stage() Stage { return StageTransport }

// ChannelError indicates an I/O failure on the transport channel.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// IsBridgeError implements BridgeError.
func (e *ChannelError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *ChannelError) Stage() Stage { return StageTransport }

// UnknownFunctionError indicates the dispatcher found no function by that name.
type UnknownFunctionError struct {
	Function string
}

func (e *UnknownFunctionError) Error() string {
	return UnknownFunctionPrefix + e.Function
}

func (e *UnknownFunctionError) Unwrap() error { return ErrUnknownFunction }

// IsBridgeError implements BridgeError.
func (e *UnknownFunctionError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *UnknownFunctionError) Stage() Stage { return StageDispatch }

// InvocationError carries a failure raised by the invoked function, verbatim.
type InvocationError struct {
	Function string
	Message  string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Function, e.Message)
}

// IsBridgeError implements BridgeError.
func (e *InvocationError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *InvocationError) Stage() Stage { return StageInvocation }

// NotFoundError indicates a reference expression matched nothing.
type NotFoundError struct {
	Kind string
	Expr string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No matching %s found for '%s'", e.Kind, e.Expr)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsBridgeError implements BridgeError.
func (e *NotFoundError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *NotFoundError) Stage() Stage { return StageResolution }

// AmbiguousError indicates several candidates scored within the tie margin.
type AmbiguousError struct {
	Kind       string
	Expr       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("Multiple %ss match '%s': %s", e.Kind, e.Expr, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguous }

// IsBridgeError implements BridgeError.
func (e *AmbiguousError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *AmbiguousError) Stage() Stage { return StageResolution }

// NotSetError indicates "last" was recalled for a kind with nothing remembered.
type NotSetError struct {
	Kind string
}

func (e *NotSetError) Error() string {
	return fmt.Sprintf("No previous %s referenced", e.Kind)
}

func (e *NotSetError) Unwrap() error { return ErrNotSet }

// IsBridgeError implements BridgeError.
func (e *NotSetError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *NotSetError) Stage() Stage { return StageResolution }

// ValidationError indicates a value normalizer rejected a token.
type ValidationError struct {
	Param  string
	Token  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s value '%s'", e.Param, e.Token)
	}

	return fmt.Sprintf("invalid %s value '%s': %s", e.Param, e.Token, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidValue }

// IsBridgeError implements BridgeError.
func (e *ValidationError) IsBridgeError() bool { return true }

// Stage implements BridgeError.
func (e *ValidationError) Stage() Stage { return StageValidation }

// StageOf reports the stage of err, or "" when err is not a bridge error.
func StageOf(err error) Stage {
	var be BridgeError
	if errors.As(err, &be) {
		return be.Stage()
	}

	return ""
}

// FromRemote converts a remote {ok:false} error message into a dispatch or
// invocation failure.
func FromRemote(function, message string) error {
	if name, ok := strings.CutPrefix(message, UnknownFunctionPrefix); ok {
		return &UnknownFunctionError{Function: name}
	}

	return &InvocationError{Function: function, Message: message}
}

// OffendingToken returns the reference, token or function name err is
// about, or "" when it names none.
func OffendingToken(err error) string {
	var (
		notFound  *NotFoundError
		ambiguous *AmbiguousError
		invalid   *ValidationError
		unknown   *UnknownFunctionError
		invoke    *InvocationError
		timeout   *TimeoutError
	)

	switch {
	case errors.As(err, &notFound):
		return notFound.Expr
	case errors.As(err, &ambiguous):
		return ambiguous.Expr
	case errors.As(err, &invalid):
		return invalid.Token
	case errors.As(err, &unknown):
		return unknown.Function
	case errors.As(err, &invoke):
		return invoke.Function
	case errors.As(err, &timeout):
		return timeout.Function
	default:
		return ""
	}
}
