package builtin

import (
	"context"
	"fmt"

	"github.com/ohler55/ojg/jp"

	"pipewright/flowkit/internal/task"
)

// ExtractValue creates an extract_value task. It evaluates a JSONPath
// expression against either a literal source or the return values of an
// earlier step and publishes the match under 'value'.
func ExtractValue() task.Task {
	return &extractValueTask{
		BaseTask: task.NewBaseTask("extract_value", task.Schema{
			"expression": {Type: task.OptionString, Required: true},
			"step":       {Type: task.OptionString},
			"source":     {Type: task.OptionAny},
			"default":    {Type: task.OptionAny},
		}, true, "Extracts a value with a JSONPath expression"),
	}
}

type extractValueTask struct {
	task.BaseTask
}

func (t *extractValueTask) Run(ctx context.Context, execCtx task.Context, options map[string]any) (map[string]any, error) {
	expression, err := task.RequiredOption[string](options, "expression")
	if err != nil {
		return nil, err
	}
	defaultVal, hasDefault := options["default"]

	data, err := t.sourceData(execCtx, options)
	if err != nil {
		if hasDefault {
			return map[string]any{"value": defaultVal, "matched": false}, nil
		}
		return nil, err
	}

	path, err := jp.ParseString(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression '%s': %w", expression, err)
	}

	results := path.Get(data)
	if len(results) == 0 {
		if hasDefault {
			return map[string]any{"value": defaultVal, "matched": false}, nil
		}
		return nil, fmt.Errorf("JSONPath '%s' returned no results", expression)
	}

	var value any
	if len(results) == 1 {
		value = results[0]
	} else {
		value = results
	}
	return map[string]any{"value": value, "matched": true}, nil
}

// sourceData picks the document to extract from: a literal 'source'
// option wins, otherwise the return values of the named 'step'.
func (t *extractValueTask) sourceData(execCtx task.Context, options map[string]any) (any, error) {
	if source, ok := options["source"]; ok {
		return source, nil
	}
	stepPath, ok := options["step"].(string)
	if !ok || stepPath == "" {
		return nil, fmt.Errorf("either 'source' or 'step' option is required")
	}
	values, ok := execCtx.StepReturnValues(stepPath)
	if !ok {
		return nil, fmt.Errorf("no return values recorded for step '%s'", stepPath)
	}
	return map[string]any(values), nil
}
