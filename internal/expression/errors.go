package expression

import "fmt"

// ParseError represents a parsing error.
type ParseError struct {
	Position int
	Expected string
	Got      string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: expected %s, got %s", e.Position, e.Expected, e.Got)
}

// NewParseError creates a new ParseError.
func NewParseError(pos int, expected, got string) *ParseError {
	return &ParseError{Position: pos, Expected: expected, Got: got}
}

// EvaluationError represents an error during expression evaluation.
type EvaluationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("evaluation error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new EvaluationError.
func NewEvaluationError(message string, cause error) *EvaluationError {
	return &EvaluationError{Message: message, Cause: cause}
}

// PathNotFoundError reports a path that resolved to nothing.
type PathNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

// NewPathNotFoundError creates a new PathNotFoundError.
func NewPathNotFoundError(path string) *PathNotFoundError {
	return &PathNotFoundError{Path: path}
}
