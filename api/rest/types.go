package rest

import (
	"pipewright/flowkit/pkg/engine"
	"pipewright/flowkit/pkg/types"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse represents a readiness check response.
type ReadyResponse struct {
	Ready     bool   `json:"ready"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// FlowListResponse lists the project's flows.
type FlowListResponse struct {
	Flows []string `json:"flows"`
}

// FlowPlanResponse is the compiled plan of one flow.
type FlowPlanResponse struct {
	Flow  string               `json:"flow"`
	Steps []types.CompiledStep `json:"steps"`
}

// TaskInfo describes one registered task.
type TaskInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Idempotent  bool           `json:"idempotent"`
	Options     map[string]any `json:"options"`
}

// TaskListResponse lists the registered tasks.
type TaskListResponse struct {
	Tasks []TaskInfo `json:"tasks"`
}

// RunSubmitRequest asks the server to start a flow run.
type RunSubmitRequest struct {
	Flow       string                    `json:"flow"`
	Config     map[string]any            `json:"config,omitempty"`
	Overrides  map[string]map[string]any `json:"overrides,omitempty"`
	ResumeFrom string                    `json:"resume_from,omitempty"`
}

// RunSubmitResponse reports the run ID of a started run.
type RunSubmitResponse struct {
	RunID string `json:"run_id"`
	Flow  string `json:"flow"`
	State string `json:"state"`
}

// RunListResponse lists tracked runs, newest first.
type RunListResponse struct {
	Runs []*engine.RunRecord `json:"runs"`
}
