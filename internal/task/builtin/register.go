package builtin

import (
	"pipewright/flowkit/internal/task"
)

// RegisterAll registers every built-in task with the registry.
func RegisterAll(registry *task.Registry) {
	registry.MustRegister(LogMessage())
	registry.MustRegister(SetValue())
	registry.MustRegister(SleepSeconds())
	registry.MustRegister(ExtractValue())
}
