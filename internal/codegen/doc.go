// Package codegen holds the target-agnostic primitives used while emitting
// experiment scripts: the output Target, an indent-tracking Buffer and the
// CodeGenerationError returned when a model cannot be expressed as code.
package codegen
