package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pipewright/flowkit/pkg/credentials"
	"pipewright/flowkit/pkg/logger"
	"pipewright/flowkit/pkg/types"
)

// RunOptions configures one flow run.
type RunOptions struct {
	// Config is the static configuration visible to tasks and `when`
	// conditions under `config.<key>`.
	Config map[string]any

	// Credentials is the provider handed to tasks that reach external
	// targets. May be nil.
	Credentials credentials.Provider

	// ResumeFrom names the step path to resume at. Every earlier step
	// is marked Skipped (pre-satisfied) without running.
	ResumeFrom string

	// Callback receives progress notifications. Nil means none.
	Callback ExecutionCallback
}

// Coordinator sequences compiled steps strictly in order on a single
// goroutine, owns the execution context, and applies the abort policy:
// the run stops at the first non-ignored failure.
type Coordinator struct {
	executor *StepExecutor
}

// NewCoordinator creates a Coordinator using the given step executor.
func NewCoordinator(executor *StepExecutor) *Coordinator {
	return &Coordinator{executor: executor}
}

// Run executes the compiled steps of a flow and returns the result.
// Cancellation is cooperative: once ctx is cancelled no further step is
// scheduled, and the result reports the run as aborted. An error return
// means the run could not start at all (for example an unknown
// ResumeFrom path); execution failures are reported in the result.
func (c *Coordinator) Run(ctx context.Context, flowName string, steps []types.CompiledStep, opts RunOptions) (*types.FlowResult, error) {
	callback := opts.Callback
	if callback == nil {
		callback = &NoopCallback{}
	}

	resumeIdx := 0
	if opts.ResumeFrom != "" {
		idx := -1
		for i := range steps {
			if steps[i].Path == opts.ResumeFrom {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("cannot resume flow '%s': no step with path '%s'", flowName, opts.ResumeFrom)
		}
		resumeIdx = idx
	}

	result := types.NewFlowResult(flowName, uuid.NewString())
	execCtx := NewExecutionContext(opts.Config, opts.Credentials)

	logger.Info("running flow '%s' (%d steps, run %s)", flowName, len(steps), result.RunID)

	for i := range steps {
		step := &steps[i]

		// Steps before the resume point are pre-satisfied.
		if i < resumeIdx {
			stepResult := types.NewStepResult(step.Path, step.StepNum)
			stepResult.Skip()
			stepResult.Finish()
			result.StepResults = append(result.StepResults, stepResult)
			execCtx.RecordResult(stepResult)
			continue
		}

		if err := ctx.Err(); err != nil {
			logger.Warn("flow '%s' cancelled before step %s", flowName, step.Path)
			result.Abort(step.Path)
			break
		}

		callback.OnStepStart(ctx, step, i+1, len(steps))

		stepResult := c.executor.Execute(ctx, step, execCtx)

		result.StepResults = append(result.StepResults, stepResult)
		execCtx.RecordResult(stepResult)

		if stepResult.Status == types.StepFailed {
			callback.OnStepFailed(ctx, step, stepResult.Error)
			if !step.IgnoreFailure {
				logger.Error("step %s failed, aborting run: %v", step.Path, stepResult.Error)
				callback.OnStepComplete(ctx, step, stepResult)
				result.Abort(step.Path)
				break
			}
			logger.Warn("step %s failed (ignored): %v", step.Path, stepResult.Error)
		}

		callback.OnStepComplete(ctx, step, stepResult)
	}

	result.Finish()
	callback.OnFlowComplete(ctx, result)

	logger.Info("flow '%s' %s in %s", flowName, result.Status, result.Duration)
	return result, nil
}
