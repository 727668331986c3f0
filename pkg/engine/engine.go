// Package engine is the embedding facade: it wires the parser,
// registry, compiler, runner and resolver behind one type so hosts
// (the CLI, the REST server, tests) do not assemble the pipeline by
// hand.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pipewright/flowkit/internal/compiler"
	"pipewright/flowkit/internal/parser"
	"pipewright/flowkit/internal/resolver"
	"pipewright/flowkit/internal/runner"
	"pipewright/flowkit/internal/task"
	"pipewright/flowkit/pkg/credentials"
	"pipewright/flowkit/pkg/logger"
	"pipewright/flowkit/pkg/types"
)

// RunState is the lifecycle state of a tracked run.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateAborted   RunState = "aborted"
)

// RunRecord tracks one flow run started through the engine.
type RunRecord struct {
	ID        string            `json:"id"`
	FlowName  string            `json:"flow_name"`
	State     RunState          `json:"state"`
	Result    *types.FlowResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

// RunFlowOptions configures one flow run.
type RunFlowOptions struct {
	// Config is merged over the project's static configuration.
	Config map[string]any

	// Overrides is the runtime option override layer, keyed by step
	// path or bare step name.
	Overrides map[string]map[string]any

	// ResumeFrom names the step path to resume at.
	ResumeFrom string

	// Credentials is handed to tasks that reach external targets.
	Credentials credentials.Provider

	// Callback receives progress notifications.
	Callback runner.ExecutionCallback
}

// Engine binds a parsed project to a task registry and runs its flows.
type Engine struct {
	project     *parser.Project
	registry    *task.Registry
	compiler    *compiler.Compiler
	coordinator *runner.Coordinator

	mu   sync.RWMutex
	runs map[string]*RunRecord
}

// New creates an engine for the project using the given registry.
func New(project *parser.Project, registry *task.Registry) *Engine {
	return &Engine{
		project:     project,
		registry:    registry,
		compiler:    compiler.New(registry, project.Flows),
		coordinator: runner.NewCoordinator(runner.NewStepExecutor(registry)),
		runs:        make(map[string]*RunRecord),
	}
}

// Project returns the engine's project.
func (e *Engine) Project() *parser.Project {
	return e.project
}

// Flows returns the names of the project's flows, sorted.
func (e *Engine) Flows() []string {
	return e.compiler.Flows()
}

// Tasks returns the registered tasks, sorted by name.
func (e *Engine) Tasks() []task.Task {
	return e.registry.List()
}

// CompileFlow compiles a flow with the project's override layer plus
// the supplied runtime overrides, without running it.
func (e *Engine) CompileFlow(flowName string, runtimeOverrides map[string]map[string]any) ([]types.CompiledStep, error) {
	return e.compiler.Compile(flowName, compiler.Overrides{
		Project: e.project.TaskOptions,
		Runtime: runtimeOverrides,
	})
}

// RunFlow compiles and runs a flow to completion, blocking until the
// run finishes or ctx is cancelled. The returned FlowResult reports
// Aborted for a failed run; the error covers compile problems and
// invalid options only.
func (e *Engine) RunFlow(ctx context.Context, flowName string, opts RunFlowOptions) (*types.FlowResult, error) {
	steps, err := e.CompileFlow(flowName, opts.Overrides)
	if err != nil {
		return nil, err
	}

	record := e.track(flowName)
	result, err := e.coordinator.Run(ctx, flowName, steps, runner.RunOptions{
		Config:      e.runConfig(opts.Config),
		Credentials: opts.Credentials,
		ResumeFrom:  opts.ResumeFrom,
		Callback:    opts.Callback,
	})
	e.finish(record, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StartFlow compiles a flow, then runs it on its own goroutine and
// returns the run ID immediately. Compile errors are reported
// synchronously; execution failures show up on the run record.
func (e *Engine) StartFlow(ctx context.Context, flowName string, opts RunFlowOptions) (string, error) {
	steps, err := e.CompileFlow(flowName, opts.Overrides)
	if err != nil {
		return "", err
	}

	record := e.track(flowName)
	go func() {
		result, runErr := e.coordinator.Run(ctx, flowName, steps, runner.RunOptions{
			Config:      e.runConfig(opts.Config),
			Credentials: opts.Credentials,
			ResumeFrom:  opts.ResumeFrom,
			Callback:    opts.Callback,
		})
		e.finish(record, result, runErr)
		if runErr != nil {
			logger.Error("run %s of flow '%s' failed: %v", record.ID, flowName, runErr)
		}
	}()
	return record.ID, nil
}

// Run returns the record of a tracked run.
func (e *Engine) Run(runID string) (*RunRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	record, ok := e.runs[runID]
	if !ok {
		return nil, false
	}
	snapshot := *record
	return &snapshot, true
}

// Runs returns all tracked runs, newest first.
func (e *Engine) Runs() []*RunRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]*RunRecord, 0, len(e.runs))
	for _, record := range e.runs {
		snapshot := *record
		result = append(result, &snapshot)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	return result
}

// ResolveDependencies resolves the project's dependency declarations
// against the metadata source into an ordered install plan.
func (e *Engine) ResolveDependencies(ctx context.Context, source resolver.MetadataSource, opts ...resolver.Option) (resolver.InstallPlan, error) {
	return resolver.New(source, opts...).Resolve(ctx, e.project.Dependencies)
}

// runConfig layers per-run configuration over the project's.
func (e *Engine) runConfig(overlay map[string]any) map[string]any {
	return compiler.MergeOptions(e.project.Config, overlay)
}

func (e *Engine) track(flowName string) *RunRecord {
	record := &RunRecord{
		ID:        uuid.NewString(),
		FlowName:  flowName,
		State:     RunStateRunning,
		StartTime: time.Now(),
	}
	e.mu.Lock()
	e.runs[record.ID] = record
	e.mu.Unlock()
	return record
}

func (e *Engine) finish(record *RunRecord, result *types.FlowResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	record.EndTime = time.Now()
	record.Result = result
	switch {
	case err != nil:
		record.State = RunStateAborted
		record.Error = err.Error()
	case result != nil && !result.Completed():
		record.State = RunStateAborted
		record.Error = "aborted at step '" + result.FailedStepPath + "'"
	default:
		record.State = RunStateCompleted
	}
}
