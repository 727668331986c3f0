package runner

import (
	"fmt"
	"time"
)

// TaskExecutionError reports a step whose task failed after all retry
// attempts were exhausted.
type TaskExecutionError struct {
	StepPath string
	TaskName string
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *TaskExecutionError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("step '%s' (task '%s') failed after %d attempts: %v", e.StepPath, e.TaskName, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("step '%s' (task '%s') failed: %v", e.StepPath, e.TaskName, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TaskExecutionError) Unwrap() error {
	return e.Cause
}

// TimeoutError reports a task invocation that exceeded the step timeout.
// It is treated as an ordinary step failure, subject to the step's retry
// and ignore_failure policy.
type TimeoutError struct {
	StepPath string
	Timeout  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step '%s' timed out after %s", e.StepPath, e.Timeout)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(stepPath string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{StepPath: stepPath, Timeout: timeout}
}
