package codegen

import "fmt"

// CodeGenerationError reports a component whose parameters cannot be turned
// into valid code, such as an unknown start type or a malformed key list.
type CodeGenerationError struct {
	Component string
	Message   string
}

// Error implements the error interface.
func (e *CodeGenerationError) Error() string {
	if e.Component == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Message)
}

// NewError is a small convenience constructor with printf-style formatting.
func NewError(component, format string, args ...any) *CodeGenerationError {
	return &CodeGenerationError{Component: component, Message: fmt.Sprintf(format, args...)}
}
