package builtin

import (
	"context"
	"fmt"
	"time"

	"pipewright/flowkit/internal/task"
)

// SleepSeconds creates a sleep_seconds task.
func SleepSeconds() task.Task {
	return &sleepSecondsTask{
		BaseTask: task.NewBaseTask("sleep_seconds", task.Schema{
			"seconds": {Type: task.OptionNumber, Required: true},
		}, true, "Sleeps for the given number of seconds"),
	}
}

type sleepSecondsTask struct {
	task.BaseTask
}

func (t *sleepSecondsTask) Run(ctx context.Context, execCtx task.Context, options map[string]any) (map[string]any, error) {
	seconds, err := toFloat64(options["seconds"])
	if err != nil {
		return nil, err
	}
	if seconds < 0 {
		return nil, fmt.Errorf("'seconds' must not be negative, got %v", seconds)
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return map[string]any{"slept_seconds": seconds}, nil
	}
}

// toFloat64 converts a schema-validated number option to float64. YAML
// decodes whole numbers as int, so both arrive here.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("'seconds' must be a number, got %T", v)
	}
}
