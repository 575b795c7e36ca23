// Package dsl is the command layer above the bridge: it resolves loose
// entity references, normalizes human-friendly parameter values, remembers
// the most recently used entity per kind, and runs high-level commands as
// sequences of bridge calls.
//
// Every command returns a Result that either reports what changed or names
// the failing stage (transport, dispatch, invocation, resolution or
// validation) together with the offending token.
package dsl
