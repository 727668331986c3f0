package task

import (
	"fmt"
	"sort"
	"strings"
)

// OptionValidationError reports supplied options that do not satisfy a
// task's option schema. It is always fatal to the step and never retried.
type OptionValidationError struct {
	TaskName string
	Problems []string
}

// Error implements the error interface.
func (e *OptionValidationError) Error() string {
	return fmt.Sprintf("invalid options for task '%s': %s", e.TaskName, strings.Join(e.Problems, "; "))
}

// ValidateOptions checks the supplied options against the schema: every
// required option must be present and every supplied option must match
// its declared type. Options not in the schema are rejected.
func ValidateOptions(taskName string, schema Schema, options map[string]any) error {
	var problems []string

	for name, spec := range schema {
		val, ok := options[name]
		if !ok {
			if spec.Required && spec.Default == nil {
				problems = append(problems, fmt.Sprintf("required option '%s' is missing", name))
			}
			continue
		}
		if !typeMatches(spec.Type, val) {
			problems = append(problems, fmt.Sprintf("option '%s' must be %s, got %T", name, spec.Type, val))
		}
	}

	for name := range options {
		if _, ok := schema[name]; !ok {
			problems = append(problems, fmt.Sprintf("unknown option '%s'", name))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return &OptionValidationError{TaskName: taskName, Problems: problems}
	}
	return nil
}

// Defaults returns the schema's default values as an options map.
func (s Schema) Defaults() map[string]any {
	defaults := make(map[string]any)
	for name, spec := range s {
		if spec.Default != nil {
			defaults[name] = spec.Default
		}
	}
	return defaults
}

// typeMatches reports whether a value satisfies an option type. Integers
// are accepted for number options since YAML decodes whole numbers as int.
func typeMatches(t OptionType, val any) bool {
	switch t {
	case OptionString:
		_, ok := val.(string)
		return ok
	case OptionInt:
		switch val.(type) {
		case int, int64:
			return true
		}
		return false
	case OptionNumber:
		switch val.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case OptionBool:
		_, ok := val.(bool)
		return ok
	case OptionMap:
		_, ok := val.(map[string]any)
		return ok
	case OptionList:
		_, ok := val.([]any)
		return ok
	case OptionAny:
		return true
	default:
		return false
	}
}
