// Package host assembles the in-memory host application: the project
// model, its native API, the Starlark DSL function table and the
// dispatcher in front of them, plus the serve loops that expose it.
package host
