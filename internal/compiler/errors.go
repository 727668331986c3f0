package compiler

import "fmt"

// CompileError reports a flow that cannot be compiled: an unregistered
// task, a flow-inclusion cycle, a duplicate step identifier, or an
// invalid step declaration. Compile errors are always fatal and reported
// before any step runs.
type CompileError struct {
	FlowName string
	StepPath string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := fmt.Sprintf("cannot compile flow '%s'", e.FlowName)
	if e.StepPath != "" {
		msg += fmt.Sprintf(" at step '%s'", e.StepPath)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// NewCompileError creates a new CompileError.
func NewCompileError(flowName, stepPath, message string) *CompileError {
	return &CompileError{FlowName: flowName, StepPath: stepPath, Message: message}
}

// WrapCompileError creates a CompileError with an underlying cause.
func WrapCompileError(flowName, stepPath, message string, cause error) *CompileError {
	return &CompileError{FlowName: flowName, StepPath: stepPath, Message: message, Cause: cause}
}
