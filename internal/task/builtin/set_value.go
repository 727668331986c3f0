package builtin

import (
	"context"
	"fmt"

	"pipewright/flowkit/internal/task"
)

// SetValue creates a set_value task. It publishes a named value as a
// return value so later steps can reference it through the expression
// context.
func SetValue() task.Task {
	return &setValueTask{
		BaseTask: task.NewBaseTask("set_value", task.Schema{
			"name":  {Type: task.OptionString, Required: true},
			"value": {Type: task.OptionAny, Required: true},
		}, true, "Publishes a named value for later steps"),
	}
}

type setValueTask struct {
	task.BaseTask
}

func (t *setValueTask) Run(ctx context.Context, execCtx task.Context, options map[string]any) (map[string]any, error) {
	name, err := task.RequiredOption[string](options, "name")
	if err != nil {
		return nil, err
	}
	value, ok := options["value"]
	if !ok {
		return nil, fmt.Errorf("required option 'value' is missing")
	}
	return map[string]any{name: value}, nil
}
