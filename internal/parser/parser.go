// Package parser reads project documents: the YAML file declaring a
// project's flows, static configuration, per-task option overrides, and
// dependency declarations. Decoding is strict; unknown fields are
// errors, and YAML errors are reported with line and column.
package parser

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pipewright/flowkit/internal/resolver"
	"pipewright/flowkit/pkg/types"
)

// Project is a parsed and validated project document.
type Project struct {
	// Name identifies the project.
	Name string

	// Config holds static configuration visible to tasks and `when`
	// conditions.
	Config map[string]any

	// Flows maps flow names to their definitions.
	Flows map[string]*types.FlowDefinition

	// TaskOptions is the project override layer of the option merge,
	// keyed by step path or bare step name.
	TaskOptions map[string]map[string]any

	// Dependencies are the project's dependency declarations, in
	// document order.
	Dependencies []resolver.Declaration
}

// projectDoc mirrors the YAML document shape. Durations are strings
// here so decoding stays strict; conversion parses them.
type projectDoc struct {
	Name         string                  `yaml:"name"`
	Config       map[string]any          `yaml:"config,omitempty"`
	Flows        map[string]flowSpec     `yaml:"flows,omitempty"`
	Tasks        map[string]taskOverride `yaml:"tasks,omitempty"`
	Dependencies []dependencySpec        `yaml:"dependencies,omitempty"`
}

type flowSpec struct {
	Description string         `yaml:"description,omitempty"`
	Options     map[string]any `yaml:"options,omitempty"`
	Steps       []stepSpec     `yaml:"steps"`
}

type stepSpec struct {
	Name          string         `yaml:"name"`
	Task          string         `yaml:"task,omitempty"`
	Flow          string         `yaml:"flow,omitempty"`
	Options       map[string]any `yaml:"options,omitempty"`
	When          string         `yaml:"when,omitempty"`
	IgnoreFailure bool           `yaml:"ignore_failure,omitempty"`
	Retry         *retrySpec     `yaml:"retry,omitempty"`
	Timeout       string         `yaml:"timeout,omitempty"`
}

type retrySpec struct {
	MaxAttempts int    `yaml:"max_attempts,omitempty"`
	Delay       string `yaml:"delay,omitempty"`
	Backoff     string `yaml:"backoff,omitempty"`
	MaxDelay    string `yaml:"max_delay,omitempty"`
}

type taskOverride struct {
	Options map[string]any `yaml:"options,omitempty"`
}

type dependencySpec struct {
	Namespace    string `yaml:"namespace,omitempty"`
	Name         string `yaml:"name,omitempty"`
	Repo         string `yaml:"repo,omitempty"`
	Subfolder    string `yaml:"subfolder,omitempty"`
	Version      string `yaml:"version,omitempty"`
	Range        string `yaml:"range,omitempty"`
	Tag          string `yaml:"tag,omitempty"`
	Commit       string `yaml:"commit,omitempty"`
	AllowBeta    bool   `yaml:"allow_beta,omitempty"`
	LatestCommit bool   `yaml:"latest_commit,omitempty"`
}

// ProjectParser parses project documents.
type ProjectParser struct{}

// NewProjectParser creates a new ProjectParser.
func NewProjectParser() *ProjectParser {
	return &ProjectParser{}
}

// Parse parses a project document from bytes.
func (p *ProjectParser) Parse(data []byte) (*Project, error) {
	var doc projectDoc

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, wrapYAMLError(err)
	}

	return convert(&doc)
}

// ParseFile parses a project document from a file.
func (p *ProjectParser) ParseFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewParseError(0, 0, fmt.Sprintf("cannot read %s", path), err)
	}
	return p.Parse(data)
}

// convert validates the document and produces the Project.
func convert(doc *projectDoc) (*Project, error) {
	if doc.Name == "" {
		return nil, NewValidationError("name", "project name is required")
	}

	project := &Project{
		Name:        doc.Name,
		Config:      doc.Config,
		Flows:       make(map[string]*types.FlowDefinition, len(doc.Flows)),
		TaskOptions: make(map[string]map[string]any, len(doc.Tasks)),
	}

	for name, spec := range doc.Flows {
		flow, err := convertFlow(name, spec)
		if err != nil {
			return nil, err
		}
		project.Flows[name] = flow
	}

	for path, override := range doc.Tasks {
		project.TaskOptions[path] = override.Options
	}

	for i, spec := range doc.Dependencies {
		decl, err := convertDependency(i, spec)
		if err != nil {
			return nil, err
		}
		project.Dependencies = append(project.Dependencies, decl)
	}

	return project, nil
}

func convertFlow(name string, spec flowSpec) (*types.FlowDefinition, error) {
	if len(spec.Steps) == 0 {
		return nil, NewValidationError("flows."+name, "flow has no steps")
	}

	flow := &types.FlowDefinition{
		Name:        name,
		Description: spec.Description,
		Options:     spec.Options,
	}

	for i, step := range spec.Steps {
		field := fmt.Sprintf("flows.%s.steps[%d]", name, i)

		if step.Name == "" {
			return nil, NewValidationError(field, "step name is required")
		}
		if step.Task == "" && step.Flow == "" {
			return nil, NewValidationError(field, "step must declare a task or a flow")
		}
		if step.Task != "" && step.Flow != "" {
			return nil, NewValidationError(field, "step cannot declare both a task and a flow")
		}

		def := types.StepDefinition{
			Name:          step.Name,
			Task:          step.Task,
			Flow:          step.Flow,
			Options:       step.Options,
			When:          step.When,
			IgnoreFailure: step.IgnoreFailure,
		}

		if step.Timeout != "" {
			d, err := time.ParseDuration(step.Timeout)
			if err != nil {
				return nil, NewValidationError(field+".timeout", fmt.Sprintf("invalid duration %q", step.Timeout))
			}
			def.Timeout = d
		}

		if step.Retry != nil {
			retry, err := convertRetry(field+".retry", step.Retry)
			if err != nil {
				return nil, err
			}
			def.Retry = retry
		}

		flow.Steps = append(flow.Steps, def)
	}

	return flow, nil
}

func convertRetry(field string, spec *retrySpec) (*types.RetryConfig, error) {
	retry := &types.RetryConfig{MaxAttempts: spec.MaxAttempts}

	switch spec.Backoff {
	case "":
	case string(types.BackoffConstant), string(types.BackoffExponential):
		retry.Backoff = types.BackoffType(spec.Backoff)
	default:
		return nil, NewValidationError(field+".backoff",
			fmt.Sprintf("unknown backoff %q (want constant or exponential)", spec.Backoff))
	}

	if spec.Delay != "" {
		d, err := time.ParseDuration(spec.Delay)
		if err != nil {
			return nil, NewValidationError(field+".delay", fmt.Sprintf("invalid duration %q", spec.Delay))
		}
		retry.Delay = d
	}
	if spec.MaxDelay != "" {
		d, err := time.ParseDuration(spec.MaxDelay)
		if err != nil {
			return nil, NewValidationError(field+".max_delay", fmt.Sprintf("invalid duration %q", spec.MaxDelay))
		}
		retry.MaxDelay = d
	}

	return retry, nil
}

func convertDependency(index int, spec dependencySpec) (resolver.Declaration, error) {
	field := fmt.Sprintf("dependencies[%d]", index)

	decl := resolver.Declaration{
		Identity: resolver.Identity{
			Namespace: spec.Namespace,
			Name:      spec.Name,
			Repo:      spec.Repo,
			Subfolder: spec.Subfolder,
		},
		Version:      spec.Version,
		Range:        spec.Range,
		Tag:          spec.Tag,
		Commit:       spec.Commit,
		AllowBeta:    spec.AllowBeta,
		LatestCommit: spec.LatestCommit,
	}

	if decl.Identity.IsZero() {
		return decl, NewValidationError(field, "dependency has no identity")
	}

	pins := 0
	for _, set := range []bool{spec.Version != "", spec.Tag != "", spec.Commit != "", spec.LatestCommit} {
		if set {
			pins++
		}
	}
	if pins > 1 {
		return decl, NewValidationError(field, "version, tag, commit, and latest_commit are mutually exclusive")
	}

	return decl, nil
}

// wrapYAMLError converts a yaml error into a ParseError carrying the
// line and column the yaml library mentions.
func wrapYAMLError(err error) error {
	errStr := err.Error()

	var line, column int
	if idx := strings.Index(errStr, "line "); idx != -1 {
		fmt.Sscanf(errStr[idx:], "line %d", &line)
	}
	if idx := strings.Index(errStr, "column "); idx != -1 {
		fmt.Sscanf(errStr[idx:], "column %d", &column)
	}

	message := strings.TrimPrefix(errStr, "yaml: ")
	return NewParseError(line, column, message, err)
}
