// Package task provides the task capability system for the flow engine.
// Tasks are named, reusable units of work with a declared option schema;
// flows reference them by name through the registry.
package task

import (
	"context"
	"fmt"

	"pipewright/flowkit/pkg/credentials"
)

// OptionType is the declared type of a task option.
type OptionType string

const (
	OptionString OptionType = "string"
	OptionInt    OptionType = "int"
	OptionNumber OptionType = "number"
	OptionBool   OptionType = "bool"
	OptionMap    OptionType = "map"
	OptionList   OptionType = "list"
	OptionAny    OptionType = "any"
)

// OptionSpec describes one option of a task's schema.
type OptionSpec struct {
	Type     OptionType `yaml:"type" json:"type"`
	Required bool       `yaml:"required,omitempty" json:"required,omitempty"`
	Default  any        `yaml:"default,omitempty" json:"default,omitempty"`
}

// Schema maps option names to their specs.
type Schema map[string]OptionSpec

// Context is the read view of the run's execution context handed to a
// task. The coordinator owns the mutable state behind it.
type Context interface {
	// StepReturnValues returns the return values recorded for an earlier
	// step path.
	StepReturnValues(path string) (map[string]any, bool)

	// Config returns a static configuration value.
	Config(key string) (any, bool)

	// Credentials returns the credential provider for the target
	// environment, or nil when none is configured.
	Credentials() credentials.Provider
}

// Task defines the capability contract every registered task implements.
type Task interface {
	// Name returns the task name used in flow definitions.
	Name() string

	// OptionSchema returns the task's option schema.
	OptionSchema() Schema

	// Idempotent reports whether the task is safe to retry. The executor
	// never retries a task that has not declared itself idempotent.
	Idempotent() bool

	// Run executes the task with validated options and returns its
	// return values.
	Run(ctx context.Context, execCtx Context, options map[string]any) (map[string]any, error)

	// Description returns a human-readable description of the task.
	Description() string
}

// BaseTask provides common functionality for tasks.
type BaseTask struct {
	name        string
	schema      Schema
	idempotent  bool
	description string
}

// NewBaseTask creates a new base task.
func NewBaseTask(name string, schema Schema, idempotent bool, description string) BaseTask {
	return BaseTask{
		name:        name,
		schema:      schema,
		idempotent:  idempotent,
		description: description,
	}
}

// Name returns the task name.
func (b BaseTask) Name() string {
	return b.name
}

// OptionSchema returns the task's option schema.
func (b BaseTask) OptionSchema() Schema {
	return b.schema
}

// Idempotent reports whether the task declared itself retry-safe.
func (b BaseTask) Idempotent() bool {
	return b.idempotent
}

// Description returns the task description.
func (b BaseTask) Description() string {
	return b.description
}

// RequiredOption extracts a required option from an options map.
func RequiredOption[T any](options map[string]any, key string) (T, error) {
	var zero T
	val, ok := options[key]
	if !ok {
		return zero, fmt.Errorf("required option '%s' is missing", key)
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("option '%s' has invalid type: expected %T, got %T", key, zero, val)
	}
	return typed, nil
}

// OptionalOption extracts an optional option, falling back to a default.
func OptionalOption[T any](options map[string]any, key string, defaultVal T) T {
	val, ok := options[key]
	if !ok {
		return defaultVal
	}
	typed, ok := val.(T)
	if !ok {
		return defaultVal
	}
	return typed
}
