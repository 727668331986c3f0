// Package reporter provides execution callbacks that surface run
// progress to humans.
package reporter

import (
	"context"
	"fmt"
	"io"
	"time"

	"pipewright/flowkit/internal/runner"
	"pipewright/flowkit/pkg/types"
)

// ProgressReporter is an ExecutionCallback that writes one line per
// step event, the way the CLI presents a run.
type ProgressReporter struct {
	out     io.Writer
	verbose bool
}

// NewProgressReporter creates a reporter writing to out.
func NewProgressReporter(out io.Writer) *ProgressReporter {
	return &ProgressReporter{out: out}
}

// SetVerbose enables per-step detail such as attempt counts and
// durations.
func (p *ProgressReporter) SetVerbose(verbose bool) {
	p.verbose = verbose
}

func (p *ProgressReporter) OnStepStart(ctx context.Context, step *types.CompiledStep, current, total int) {
	fmt.Fprintf(p.out, "[%d/%d] %s (%s) running task '%s'\n", current, total, step.Path, step.StepNum, step.TaskName)
}

func (p *ProgressReporter) OnStepComplete(ctx context.Context, step *types.CompiledStep, result *types.StepResult) {
	switch result.Status {
	case types.StepSkipped:
		fmt.Fprintf(p.out, "      %s skipped\n", step.Path)
	case types.StepFailed:
		if step.IgnoreFailure {
			fmt.Fprintf(p.out, "      %s failed (ignored): %v\n", step.Path, result.Error)
		} else {
			fmt.Fprintf(p.out, "      %s failed: %v\n", step.Path, result.Error)
		}
	default:
		if p.verbose {
			fmt.Fprintf(p.out, "      %s completed in %s (%d attempt(s))\n", step.Path, result.Duration.Round(time.Millisecond), result.Attempts)
		} else {
			fmt.Fprintf(p.out, "      %s completed\n", step.Path)
		}
	}
}

func (p *ProgressReporter) OnStepFailed(ctx context.Context, step *types.CompiledStep, err error) {
	// OnStepComplete reports the failure with its ignore decision.
}

func (p *ProgressReporter) OnFlowComplete(ctx context.Context, result *types.FlowResult) {
	if result.Completed() {
		fmt.Fprintf(p.out, "flow '%s' completed in %s (%d steps)\n", result.FlowName, result.Duration.Round(time.Millisecond), len(result.StepResults))
		return
	}
	fmt.Fprintf(p.out, "flow '%s' aborted at step '%s'\n", result.FlowName, result.FailedStepPath)
}

var _ runner.ExecutionCallback = (*ProgressReporter)(nil)
