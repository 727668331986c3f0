// Package builtin provides the tasks shipped with the engine.
package builtin

import (
	"context"
	"fmt"

	"pipewright/flowkit/internal/task"
	"pipewright/flowkit/pkg/logger"
)

// LogMessage creates a log_message task.
func LogMessage() task.Task {
	return &logMessageTask{
		BaseTask: task.NewBaseTask("log_message", task.Schema{
			"message": {Type: task.OptionString, Required: true},
			"level":   {Type: task.OptionString, Default: "info"},
		}, true, "Logs a message at the given level"),
	}
}

type logMessageTask struct {
	task.BaseTask
}

func (t *logMessageTask) Run(ctx context.Context, execCtx task.Context, options map[string]any) (map[string]any, error) {
	message, err := task.RequiredOption[string](options, "message")
	if err != nil {
		return nil, err
	}
	level := task.OptionalOption(options, "level", "info")

	switch level {
	case "debug":
		logger.Debug("%s", message)
	case "info":
		logger.Info("%s", message)
	case "warn", "warning":
		logger.Warn("%s", message)
	case "error":
		logger.Error("%s", message)
	default:
		return nil, fmt.Errorf("unknown log level '%s'", level)
	}

	return map[string]any{"message": message, "level": level}, nil
}
