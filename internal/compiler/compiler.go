// Package compiler expands flow definitions into flat, ordered lists of
// compiled steps. Nested flow references are spliced in place with
// path-qualified identifiers, options are merged across four layers
// (task defaults, flow step options, project overrides, runtime
// overrides), and `when` conditions are parse-checked up front so no
// invalid plan ever reaches execution.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"pipewright/flowkit/internal/expression"
	"pipewright/flowkit/internal/task"
	"pipewright/flowkit/pkg/types"
)

// Overrides carries the two outer option layers applied at compile time.
// Both maps are keyed by step path ("ci/deploy"); a key without a slash
// also matches any step whose final path segment equals it.
type Overrides struct {
	// Project holds per-step options from the project configuration.
	Project map[string]map[string]any
	// Runtime holds per-step options supplied at invocation time. They
	// win over every other layer.
	Runtime map[string]map[string]any
}

// Compiler compiles flow definitions against a task registry and a
// library of named flows. It holds no mutable state between compiles.
type Compiler struct {
	registry *task.Registry
	flows    map[string]*types.FlowDefinition
}

// New creates a Compiler over the given registry and flow library.
func New(registry *task.Registry, flows map[string]*types.FlowDefinition) *Compiler {
	if flows == nil {
		flows = make(map[string]*types.FlowDefinition)
	}
	return &Compiler{registry: registry, flows: flows}
}

// Flows returns the names of the flows the compiler knows about.
func (c *Compiler) Flows() []string {
	names := make([]string, 0, len(c.flows))
	for name := range c.flows {
		names = append(names, name)
	}
	return names
}

// Compile expands the named flow into an ordered list of compiled steps.
func (c *Compiler) Compile(flowName string, overrides Overrides) ([]types.CompiledStep, error) {
	flow, ok := c.flows[flowName]
	if !ok {
		return nil, NewCompileError(flowName, "", "flow is not defined")
	}

	visited := map[string]bool{flowName: true}
	state := &compileState{rootFlow: flowName, overrides: overrides}

	if err := c.expand(flow, "", "", frame{}, visited, state); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(state.steps))
	for _, step := range state.steps {
		if prev, dup := seen[step.Path]; dup {
			return nil, NewCompileError(flowName, step.Path,
				fmt.Sprintf("duplicate step identifier (steps %s and %s)", prev, step.StepNum))
		}
		seen[step.Path] = step.StepNum
	}

	return state.steps, nil
}

// compileState accumulates output across the recursive expansion.
type compileState struct {
	rootFlow  string
	overrides Overrides
	steps     []types.CompiledStep
}

// frame carries the option and policy context a parent flow step imposes
// on the steps spliced in from a sub-flow.
type frame struct {
	// childOptions maps relative step paths within the sub-flow to
	// option overrides declared on the parent flow step.
	childOptions map[string]map[string]any
	// when is the parent step's condition, applied to spliced children
	// that have none of their own.
	when string
	// ignoreFailure marks every spliced child as ignorable when the
	// parent flow step is.
	ignoreFailure bool
}

// expand walks one flow definition, appending compiled steps to state.
func (c *Compiler) expand(flow *types.FlowDefinition, numPrefix, pathPrefix string, fr frame, visited map[string]bool, state *compileState) error {
	for i, step := range flow.Steps {
		stepNum := strconv.Itoa(i + 1)
		if numPrefix != "" {
			stepNum = numPrefix + "/" + stepNum
		}

		if step.Name == "" {
			return NewCompileError(state.rootFlow, stepNum, "step has no name")
		}
		if strings.ContainsAny(step.Name, "/.") {
			return NewCompileError(state.rootFlow, stepNum,
				fmt.Sprintf("step name '%s' must not contain '/' or '.'", step.Name))
		}

		path := step.Name
		if pathPrefix != "" {
			path = pathPrefix + "/" + step.Name
		}

		switch {
		case step.Task != "" && step.Flow != "":
			return NewCompileError(state.rootFlow, path, "step declares both a task and a flow")

		case step.Task != "":
			if err := c.compileTaskStep(step, stepNum, path, fr, state); err != nil {
				return err
			}

		case step.Flow != "":
			if err := c.expandFlowStep(step, stepNum, path, fr, visited, state); err != nil {
				return err
			}

		default:
			return NewCompileError(state.rootFlow, path, "step declares neither a task nor a flow")
		}
	}
	return nil
}

// compileTaskStep resolves one leaf step: registry lookup, condition
// parse check, and the full option merge.
func (c *Compiler) compileTaskStep(step types.StepDefinition, stepNum, path string, fr frame, state *compileState) error {
	t, err := c.registry.Get(step.Task)
	if err != nil {
		return WrapCompileError(state.rootFlow, path,
			fmt.Sprintf("task '%s' is not registered", step.Task), err)
	}

	when := step.When
	if when == "" {
		when = fr.when
	} else if fr.when != "" {
		when = "(" + fr.when + ") AND (" + when + ")"
	}
	if when != "" {
		if _, err := expression.Parse(when); err != nil {
			return WrapCompileError(state.rootFlow, path, "invalid when condition", err)
		}
	}

	options := MergeOptions(
		t.OptionSchema().Defaults(),
		step.Options,
		fr.childOptions[relativeName(path)],
		lookupOverride(state.overrides.Project, path),
		lookupOverride(state.overrides.Runtime, path),
	)

	state.steps = append(state.steps, types.CompiledStep{
		StepNum:       stepNum,
		Path:          path,
		TaskName:      step.Task,
		Options:       options,
		When:          when,
		IgnoreFailure: step.IgnoreFailure || fr.ignoreFailure,
		Retry:         step.Retry,
		Timeout:       step.Timeout,
	})
	return nil
}

// expandFlowStep splices a referenced sub-flow in place of the step.
func (c *Compiler) expandFlowStep(step types.StepDefinition, stepNum, path string, fr frame, visited map[string]bool, state *compileState) error {
	sub, ok := c.flows[step.Flow]
	if !ok {
		return NewCompileError(state.rootFlow, path,
			fmt.Sprintf("flow '%s' is not defined", step.Flow))
	}
	if visited[step.Flow] {
		return NewCompileError(state.rootFlow, path,
			fmt.Sprintf("flow inclusion cycle through '%s'", step.Flow))
	}

	childFrame := frame{
		childOptions:  make(map[string]map[string]any),
		when:          step.When,
		ignoreFailure: step.IgnoreFailure || fr.ignoreFailure,
	}
	if childFrame.when == "" {
		childFrame.when = fr.when
	} else if fr.when != "" {
		childFrame.when = "(" + fr.when + ") AND (" + childFrame.when + ")"
	}

	// The flow step's options target the sub-flow's steps by relative
	// path. Overrides inherited from further out win over the parent's.
	for key, val := range step.Options {
		m, ok := val.(map[string]any)
		if !ok {
			return NewCompileError(state.rootFlow, path,
				fmt.Sprintf("option '%s' on a flow step must be a step-name to options mapping", key))
		}
		childFrame.childOptions[key] = m
	}
	name := relativeName(path)
	for key, val := range fr.childOptions {
		rel, ok := strings.CutPrefix(key, name+"/")
		if !ok {
			continue
		}
		childFrame.childOptions[rel] = MergeOptions(childFrame.childOptions[rel], val)
	}

	visited[step.Flow] = true
	err := c.expand(sub, stepNum, path, childFrame, visited, state)
	delete(visited, step.Flow)
	return err
}

// lookupOverride finds the override layer entry for a step path. Exact
// path matches win; a bare name matches by final path segment.
func lookupOverride(layer map[string]map[string]any, path string) map[string]any {
	if layer == nil {
		return nil
	}
	if opts, ok := layer[path]; ok {
		return opts
	}
	name := relativeName(path)
	if name == path {
		return nil
	}
	return layer[name]
}

// relativeName returns the final segment of a step path.
func relativeName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
