// Package runner executes compiled flows: the step executor applies
// option validation, conditions, timeouts, and retry policy to a single
// step; the coordinator sequences steps, owns the execution context, and
// enforces the abort/resume policy.
package runner

import (
	"pipewright/flowkit/internal/expression"
	"pipewright/flowkit/pkg/credentials"
	"pipewright/flowkit/pkg/types"
)

// stepEntry is what the context records about one executed step.
type stepEntry struct {
	status       types.StepStatus
	failed       bool
	returnValues map[string]any
}

// ExecutionContext accumulates step return values over a run. It is
// owned exclusively by the coordinator and mutated only between step
// executions, never concurrently, so it carries no lock. Tasks see it
// through the read-only task.Context interface.
//
// Return values of failed-but-ignored steps stay visible to later steps
// alongside an explicit failed flag, so conditions can branch on
// `steps.<path>.failed` rather than silently losing partial output.
type ExecutionContext struct {
	config map[string]any
	creds  credentials.Provider
	steps  map[string]*stepEntry
}

// NewExecutionContext creates an ExecutionContext with static
// configuration and an optional credential provider.
func NewExecutionContext(config map[string]any, creds credentials.Provider) *ExecutionContext {
	if config == nil {
		config = make(map[string]any)
	}
	return &ExecutionContext{
		config: config,
		creds:  creds,
		steps:  make(map[string]*stepEntry),
	}
}

// StepReturnValues returns the return values recorded for a step path.
func (c *ExecutionContext) StepReturnValues(path string) (map[string]any, bool) {
	entry, ok := c.steps[path]
	if !ok {
		return nil, false
	}
	return entry.returnValues, true
}

// Config returns a static configuration value.
func (c *ExecutionContext) Config(key string) (any, bool) {
	val, ok := c.config[key]
	return val, ok
}

// Credentials returns the credential provider, or nil.
func (c *ExecutionContext) Credentials() credentials.Provider {
	return c.creds
}

// RecordResult stores a finished step's outcome under its path.
func (c *ExecutionContext) RecordResult(result *types.StepResult) {
	c.steps[result.Path] = &stepEntry{
		status:       result.Status,
		failed:       result.Status == types.StepFailed,
		returnValues: result.ReturnValues,
	}
}

// ExpressionContext builds the evaluation context `when` conditions see:
// per-step entries with status, failed flag, and return values, plus the
// static configuration.
//
// The names "status" and "failed" are reserved on every step entry for
// the synthetic fields above. A task return value under either name is
// not exposed through `steps.<path>`; it stays reachable via
// StepReturnValues and the step result.
func (c *ExecutionContext) ExpressionContext() *expression.EvaluationContext {
	ctx := expression.NewEvaluationContext().WithConfig(c.config)
	for path, entry := range c.steps {
		fields := map[string]any{
			"status": string(entry.status),
			"failed": entry.failed,
		}
		for key, val := range entry.returnValues {
			if key == "status" || key == "failed" {
				continue
			}
			fields[key] = val
		}
		ctx.SetStep(path, fields)
	}
	return ctx
}
