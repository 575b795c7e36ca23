// Package remote implements the dispatcher that runs inside the host
// application and answers bridge envelopes.
//
// A call name is looked up first in the DSL function table and then in the
// native API registry. Native functions are plain Go funcs (or methods)
// registered once at startup; every call goes through the same reflective
// forwarding wrapper, which converts wire arguments to parameter types and
// coerces results back to wire values. Host objects never cross the
// boundary: they are replaced by opaque "<Kind>@<n>" tokens.
//
// Every invocation is guarded. Panics and returned errors become failure
// responses and the serve loop continues with the next request.
package remote
