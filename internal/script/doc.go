// Package script hosts the DSL function table in an embedded Starlark
// runtime.
//
// Scripts are executed once at load time. Every top-level function whose
// name starts with an upper-case letter becomes a DSL function callable
// over the bridge. Scripts reach the host through the predeclared api
// module, whose attributes forward to the native registry:
//
//	def GetCursorPosition():
//	    return api.GetCursorPosition()
//
// A DSL function returning a dict replies with a named-field map.
package script
