package types

import "time"

// StepStatus represents the outcome of one step execution.
type StepStatus string

const (
	// StepCompleted indicates the task ran and succeeded.
	StepCompleted StepStatus = "completed"
	// StepFailed indicates the task ran and failed (possibly ignored).
	StepFailed StepStatus = "failed"
	// StepSkipped indicates the step was not run, either because its
	// condition evaluated false or because it was pre-satisfied on resume.
	StepSkipped StepStatus = "skipped"
)

// StepResult is the outcome of executing one compiled step.
// Create it with NewStepResult, fill it during execution, and close it
// with defer result.Finish().
type StepResult struct {
	Path         string         `json:"path"`
	StepNum      string         `json:"step_num"`
	Status       StepStatus     `json:"status"`
	ReturnValues map[string]any `json:"return_values,omitempty"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Duration     time.Duration  `json:"duration"`
	Attempts     int            `json:"attempts"`
	Error        error          `json:"-"`
}

// NewStepResult creates a StepResult with Status Completed and StartTime set.
func NewStepResult(path, stepNum string) *StepResult {
	return &StepResult{
		Path:      path,
		StepNum:   stepNum,
		Status:    StepCompleted,
		StartTime: time.Now(),
	}
}

// Fail marks the step as failed.
func (r *StepResult) Fail(err error) {
	r.Status = StepFailed
	r.Error = err
}

// Skip marks the step as skipped.
func (r *StepResult) Skip() {
	r.Status = StepSkipped
}

// Finish sets EndTime and Duration.
func (r *StepResult) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// IsSuccess reports whether the step completed or was skipped.
func (r *StepResult) IsSuccess() bool {
	return r.Status != StepFailed
}

// FlowStatus represents the overall outcome of a flow run.
type FlowStatus string

const (
	// FlowCompleted indicates every step completed, was skipped, or
	// failed with ignore_failure set.
	FlowCompleted FlowStatus = "completed"
	// FlowAborted indicates the run stopped at a non-ignored failure.
	FlowAborted FlowStatus = "aborted"
)

// FlowResult is the outcome of a full flow run.
type FlowResult struct {
	RunID          string        `json:"run_id"`
	FlowName       string        `json:"flow_name"`
	Status         FlowStatus    `json:"status"`
	StepResults    []*StepResult `json:"step_results"`
	FailedStepPath string        `json:"failed_step_path,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration"`
}

// NewFlowResult creates a FlowResult with Status Completed and
// StartTime set.
func NewFlowResult(flowName, runID string) *FlowResult {
	return &FlowResult{
		RunID:     runID,
		FlowName:  flowName,
		Status:    FlowCompleted,
		StartTime: time.Now(),
	}
}

// Abort marks the run as aborted at the given step path.
func (r *FlowResult) Abort(failedStepPath string) {
	r.Status = FlowAborted
	r.FailedStepPath = failedStepPath
}

// Finish sets EndTime and Duration.
func (r *FlowResult) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// Completed reports whether the run finished without a fatal failure.
func (r *FlowResult) Completed() bool {
	return r.Status == FlowCompleted
}
