// Package errors defines error types for the host bridge.
//
// Every failure the bridge can report belongs to one stage: transport,
// dispatch, invocation, resolution or validation. Each stage has a
// structured error type that records the offending function, token or
// reference. All error types support error unwrapping and can be checked
// using errors.Is, errors.As, and errors.AsType.
package errors
