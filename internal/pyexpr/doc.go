// Package pyexpr parses the small Python expressions that users type into
// experiment parameters. It never executes them: literals such as condition
// lists and key lists are evaluated structurally from the syntax tree, and
// general expressions can be inspected for the names they reference or
// translated into JavaScript for the browser target.
//
// Parsing is done with the Starlark grammar from go.starlark.net/syntax,
// which covers the expression subset of Python used by experiment files.
package pyexpr
