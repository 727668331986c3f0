package runner

import (
	"context"
	"errors"
	"time"

	"pipewright/flowkit/internal/expression"
	"pipewright/flowkit/internal/task"
	"pipewright/flowkit/pkg/logger"
	"pipewright/flowkit/pkg/types"
)

// DefaultStepTimeout applies when a step declares no timeout.
const DefaultStepTimeout = 10 * time.Minute

// StepExecutor runs one compiled step at a time: option validation,
// condition check, then task invocation under timeout and retry policy.
type StepExecutor struct {
	registry       *task.Registry
	evaluator      *expression.Evaluator
	defaultTimeout time.Duration
}

// NewStepExecutor creates a StepExecutor over the given registry.
func NewStepExecutor(registry *task.Registry) *StepExecutor {
	return &StepExecutor{
		registry:       registry,
		evaluator:      expression.NewEvaluator(),
		defaultTimeout: DefaultStepTimeout,
	}
}

// SetDefaultTimeout overrides the timeout used by steps that declare none.
func (e *StepExecutor) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		e.defaultTimeout = d
	}
}

// Execute runs one compiled step against the execution context and
// returns its result. Execute never panics the run: every failure mode
// is folded into the result's status and error.
func (e *StepExecutor) Execute(ctx context.Context, step *types.CompiledStep, execCtx *ExecutionContext) *types.StepResult {
	result := types.NewStepResult(step.Path, step.StepNum)
	defer result.Finish()

	t, err := e.registry.Get(step.TaskName)
	if err != nil {
		result.Fail(&TaskExecutionError{StepPath: step.Path, TaskName: step.TaskName, Attempts: 0, Cause: err})
		return result
	}

	// Phase 1: option validation. Never retried.
	if err := task.ValidateOptions(step.TaskName, t.OptionSchema(), step.Options); err != nil {
		result.Fail(err)
		return result
	}

	// Phase 2: condition check.
	if step.When != "" {
		ok, err := e.evaluator.EvaluateString(step.When, execCtx.ExpressionContext())
		if err != nil {
			result.Fail(&TaskExecutionError{StepPath: step.Path, TaskName: step.TaskName, Cause: err})
			return result
		}
		if !ok {
			logger.Debug("step %s skipped: condition %q is false", step.Path, step.When)
			result.Skip()
			return result
		}
	}

	// Phase 3: task invocation with timeout and retry.
	maxAttempts := 1
	delay := DefaultRetryDelay
	backoff := types.BackoffConstant
	var maxDelay time.Duration

	if step.Retry != nil && t.Idempotent() {
		maxAttempts = step.Retry.MaxAttempts
		if maxAttempts <= 0 {
			maxAttempts = DefaultMaxAttempts
		}
		if step.Retry.Delay > 0 {
			delay = step.Retry.Delay
		}
		if step.Retry.Backoff != "" {
			backoff = step.Retry.Backoff
		}
		maxDelay = step.Retry.MaxDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			result.Fail(&TaskExecutionError{StepPath: step.Path, TaskName: step.TaskName, Attempts: attempt, Cause: err})
			return result
		}

		values, err := e.invoke(ctx, t, execCtx, step)
		if err == nil {
			result.ReturnValues = values
			return result
		}
		lastErr = err
		// Partial return values of a failed attempt stay visible so
		// later steps can branch on them next to the failed flag.
		result.ReturnValues = values

		// A cancelled run is not a task failure worth retrying.
		if errors.Is(err, context.Canceled) {
			break
		}

		if attempt < maxAttempts {
			wait := CalculateBackoffDelay(delay, attempt, backoff, maxDelay)
			logger.Debug("step %s attempt %d/%d failed: %v; retrying in %s", step.Path, attempt, maxAttempts, err, wait)
			select {
			case <-ctx.Done():
				result.Fail(&TaskExecutionError{StepPath: step.Path, TaskName: step.TaskName, Attempts: attempt, Cause: ctx.Err()})
				return result
			case <-time.After(wait):
			}
		}
	}

	result.Fail(&TaskExecutionError{
		StepPath: step.Path,
		TaskName: step.TaskName,
		Attempts: result.Attempts,
		Cause:    lastErr,
	})
	return result
}

// invoke runs the task once under the step timeout. The task receives a
// context that expires at the deadline; if it keeps running anyway the
// invocation is abandoned, not interrupted.
func (e *StepExecutor) invoke(ctx context.Context, t task.Task, execCtx *ExecutionContext, step *types.CompiledStep) (map[string]any, error) {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The deadline runs on its own timer so a cancelled parent context
	// stays distinguishable from the step timing out.
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	type outcome struct {
		values map[string]any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		values, err := t.Run(runCtx, execCtx, step.Options)
		done <- outcome{values: values, err: err}
	}()

	// A task that honors runCtx reports the expired deadline itself;
	// both routes surface as the step timing out.
	finish := func(out outcome) (map[string]any, error) {
		if errors.Is(out.err, context.DeadlineExceeded) {
			return out.values, NewTimeoutError(step.Path, timeout)
		}
		return out.values, out.err
	}

	select {
	case out := <-done:
		return finish(out)
	case <-deadline.C:
		// The abandoned goroutine still holds its buffered channel, so
		// it exits cleanly whenever the task returns.
		return nil, NewTimeoutError(step.Path, timeout)
	case <-ctx.Done():
		// An external cancellation never interrupts in-flight work: the
		// task sees it through runCtx and its outcome still counts.
		// Only the step deadline gives up on it.
		select {
		case out := <-done:
			return finish(out)
		case <-deadline.C:
			return nil, NewTimeoutError(step.Path, timeout)
		}
	}
}
