package rest

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"pipewright/flowkit/internal/compiler"
	"pipewright/flowkit/pkg/engine"
)

// healthCheck handles GET /health
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// readyCheck handles GET /ready
func (s *Server) readyCheck(c *fiber.Ctx) error {
	ready := s.engine != nil
	status := "ready"
	if !ready {
		status = "not_ready"
	}

	return c.JSON(ReadyResponse{
		Ready:     ready,
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// listFlows handles GET /api/v1/flows
func (s *Server) listFlows(c *fiber.Ctx) error {
	return c.JSON(FlowListResponse{Flows: s.engine.Flows()})
}

// getFlowPlan handles GET /api/v1/flows/:name/plan
func (s *Server) getFlowPlan(c *fiber.Ctx) error {
	name := c.Params("name")

	steps, err := s.engine.CompileFlow(name, nil)
	if err != nil {
		var compileErr *compiler.CompileError
		status := fiber.StatusNotFound
		if errors.As(err, &compileErr) && compileErr.StepPath != "" {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(ErrorResponse{
			Error:   "compile_failed",
			Message: err.Error(),
		})
	}

	return c.JSON(FlowPlanResponse{Flow: name, Steps: steps})
}

// listTasks handles GET /api/v1/tasks
func (s *Server) listTasks(c *fiber.Ctx) error {
	tasks := s.engine.Tasks()
	infos := make([]TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		options := make(map[string]any, len(t.OptionSchema()))
		for name, spec := range t.OptionSchema() {
			options[name] = spec
		}
		infos = append(infos, TaskInfo{
			Name:        t.Name(),
			Description: t.Description(),
			Idempotent:  t.Idempotent(),
			Options:     options,
		})
	}
	return c.JSON(TaskListResponse{Tasks: infos})
}

// submitRun handles POST /api/v1/runs
func (s *Server) submitRun(c *fiber.Ctx) error {
	var req RunSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
		})
	}
	if req.Flow == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "'flow' is required",
		})
	}

	// The run outlives the HTTP request.
	runID, err := s.engine.StartFlow(context.Background(), req.Flow, engine.RunFlowOptions{
		Config:     req.Config,
		Overrides:  req.Overrides,
		ResumeFrom: req.ResumeFrom,
	})
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error:   "compile_failed",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(RunSubmitResponse{
		RunID: runID,
		Flow:  req.Flow,
		State: string(engine.RunStateRunning),
	})
}

// listRuns handles GET /api/v1/runs
func (s *Server) listRuns(c *fiber.Ctx) error {
	return c.JSON(RunListResponse{Runs: s.engine.Runs()})
}

// getRun handles GET /api/v1/runs/:id
func (s *Server) getRun(c *fiber.Ctx) error {
	record, ok := s.engine.Run(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "run not found",
		})
	}
	return c.JSON(record)
}
