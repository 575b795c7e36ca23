package hostbridge

import "github.com/wagiedev/host-bridge-go/internal/errors"

// Re-export error types from internal package

// Stage names the layer at which a bridge operation failed.
type Stage = errors.Stage

// Failure stages.
const (
	StageTransport  = errors.StageTransport
	StageDispatch   = errors.StageDispatch
	StageInvocation = errors.StageInvocation
	StageResolution = errors.StageResolution
	StageValidation = errors.StageValidation
)

// BridgeError is the interface implemented by all bridge errors.
type BridgeError = errors.BridgeError

// TimeoutError indicates no correlated response arrived within the bounded wait.
type TimeoutError = errors.TimeoutError

// DecodeError indicates a response payload could not be decoded.
type DecodeError = errors.DecodeError

// ChannelError indicates the underlying channel failed.
type ChannelError = errors.ChannelError

// UnknownFunctionError indicates the host exports no function with the requested name.
type UnknownFunctionError = errors.UnknownFunctionError

// InvocationError indicates the host function itself failed.
type InvocationError = errors.InvocationError

// NotFoundError indicates a name expression matched nothing.
type NotFoundError = errors.NotFoundError

// AmbiguousError indicates a name expression matched several entities equally well.
type AmbiguousError = errors.AmbiguousError

// NotSetError indicates "last" was used before anything of that kind was referenced.
type NotSetError = errors.NotSetError

// ValidationError indicates a value token could not be parsed or is out of range.
type ValidationError = errors.ValidationError

// Re-export sentinel errors from internal package.
var (
	// ErrTimeout matches every TimeoutError.
	ErrTimeout = errors.ErrTimeout

	// ErrMalformedResponse matches every DecodeError.
	ErrMalformedResponse = errors.ErrMalformedResponse

	// ErrTransportClosed indicates a call on a transport that is not started.
	ErrTransportClosed = errors.ErrTransportClosed

	// ErrUnknownFunction matches every UnknownFunctionError.
	ErrUnknownFunction = errors.ErrUnknownFunction

	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.ErrNotFound

	// ErrAmbiguous matches every AmbiguousError.
	ErrAmbiguous = errors.ErrAmbiguous

	// ErrNotSet matches every NotSetError.
	ErrNotSet = errors.ErrNotSet

	// ErrInvalidValue matches every ValidationError.
	ErrInvalidValue = errors.ErrInvalidValue
)

// StageOf returns the stage of the first BridgeError in err's chain, or "".
func StageOf(err error) Stage {
	return errors.StageOf(err)
}
