// Package types defines the core data structures for the flow
// orchestration engine.
package types

import (
	"encoding/json"
	"time"
)

// FlowDefinition is a named, ordered composition of steps. A step either
// invokes a registered task or splices in another flow by name.
type FlowDefinition struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Options     map[string]any   `yaml:"options,omitempty" json:"options,omitempty"`
	Steps       []StepDefinition `yaml:"steps" json:"steps"`
}

// StepDefinition declares one step inside a flow. Exactly one of Task or
// Flow must be set.
type StepDefinition struct {
	Name          string         `yaml:"name" json:"name"`
	Task          string         `yaml:"task,omitempty" json:"task,omitempty"`
	Flow          string         `yaml:"flow,omitempty" json:"flow,omitempty"`
	Options       map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
	When          string         `yaml:"when,omitempty" json:"when,omitempty"`
	IgnoreFailure bool           `yaml:"ignore_failure,omitempty" json:"ignore_failure,omitempty"`
	Retry         *RetryConfig   `yaml:"retry,omitempty" json:"retry,omitempty"`
	Timeout       time.Duration  `yaml:"timeout,omitempty" json:"-"`
}

// UnmarshalJSON accepts timeout as a duration string (e.g. "30s"), which
// is what API callers send.
func (s *StepDefinition) UnmarshalJSON(data []byte) error {
	type Alias StepDefinition
	aux := &struct {
		Timeout json.RawMessage `json:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Timeout) > 0 && string(aux.Timeout) != "null" && string(aux.Timeout) != `""` {
		var str string
		if json.Unmarshal(aux.Timeout, &str) == nil && str != "" {
			if d, err := time.ParseDuration(str); err == nil {
				s.Timeout = d
			}
		} else {
			var ns int64
			if json.Unmarshal(aux.Timeout, &ns) == nil {
				s.Timeout = time.Duration(ns)
			}
		}
	}
	return nil
}

// MarshalJSON outputs Timeout as a human-readable duration string.
func (s StepDefinition) MarshalJSON() ([]byte, error) {
	type Alias StepDefinition
	aux := struct {
		Timeout string `json:"timeout,omitempty"`
		Alias
	}{
		Alias: Alias(s),
	}
	if s.Timeout > 0 {
		aux.Timeout = s.Timeout.String()
	}
	return json.Marshal(aux)
}

// BackoffType selects the retry delay progression.
type BackoffType string

const (
	BackoffConstant    BackoffType = "constant"
	BackoffExponential BackoffType = "exponential"
)

// RetryConfig configures the retry policy for a step. It only takes
// effect when the step's task declares itself idempotent.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	Delay       time.Duration `yaml:"delay,omitempty" json:"delay,omitempty"`
	Backoff     BackoffType   `yaml:"backoff,omitempty" json:"backoff,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty" json:"max_delay,omitempty"`
}

// CompiledStep is one fully resolved step of a compiled flow. StepNum is
// the positional identifier reflecting nesting ("1/2/1"); Path is the
// name-qualified identifier ("ci/deploy") used for context lookups and
// failure reporting. Compiled steps are immutable after compilation.
type CompiledStep struct {
	StepNum       string         `json:"step_num"`
	Path          string         `json:"path"`
	TaskName      string         `json:"task"`
	Options       map[string]any `json:"options,omitempty"`
	When          string         `json:"when,omitempty"`
	IgnoreFailure bool           `json:"ignore_failure,omitempty"`
	Retry         *RetryConfig   `json:"retry,omitempty"`
	Timeout       time.Duration  `json:"timeout,omitempty"`
}
