package runner

import (
	"context"

	"pipewright/flowkit/pkg/types"
)

// ExecutionCallback receives progress notifications during a flow run.
// Callbacks are a pure side channel: they cannot influence control flow
// and run on the coordinator's goroutine between step executions.
type ExecutionCallback interface {
	// OnStepStart is called before a step executes. current and total
	// describe the step's position in the compiled plan (1-based).
	OnStepStart(ctx context.Context, step *types.CompiledStep, current, total int)

	// OnStepComplete is called after a step finishes with any status,
	// including Skipped and ignored failures.
	OnStepComplete(ctx context.Context, step *types.CompiledStep, result *types.StepResult)

	// OnStepFailed is called when a step fails, before the coordinator
	// decides whether the failure aborts the run.
	OnStepFailed(ctx context.Context, step *types.CompiledStep, err error)

	// OnFlowComplete is called once with the final result, whether the
	// run completed or aborted.
	OnFlowComplete(ctx context.Context, result *types.FlowResult)
}

// NoopCallback is an ExecutionCallback that does nothing.
type NoopCallback struct{}

func (n *NoopCallback) OnStepStart(ctx context.Context, step *types.CompiledStep, current, total int) {
}

func (n *NoopCallback) OnStepComplete(ctx context.Context, step *types.CompiledStep, result *types.StepResult) {
}

func (n *NoopCallback) OnStepFailed(ctx context.Context, step *types.CompiledStep, err error) {}

func (n *NoopCallback) OnFlowComplete(ctx context.Context, result *types.FlowResult) {}

var _ ExecutionCallback = (*NoopCallback)(nil)
