package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipewright/flowkit/internal/parser"
	"pipewright/flowkit/internal/task"
	"pipewright/flowkit/internal/task/builtin"
	"pipewright/flowkit/pkg/engine"
)

const testProjectYAML = `
name: demo
config:
  environment: staging
flows:
  release:
    steps:
      - name: announce
        task: log_message
        options:
          message: starting release
`

func testServer(t *testing.T, config *Config) *Server {
	t.Helper()
	project, err := parser.NewProjectParser().Parse([]byte(testProjectYAML))
	require.NoError(t, err)

	registry := task.NewRegistry()
	builtin.RegisterAll(registry)
	return NewServer(engine.New(project, registry), config)
}

func decodeJSON[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	var result T
	require.NoError(t, json.Unmarshal(data, &result))
	return result
}

func TestHealthCheck(t *testing.T) {
	server := testServer(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeJSON[HealthResponse](t, resp.Body)
	assert.Equal(t, "healthy", result.Status)
}

func TestReadyCheck(t *testing.T) {
	server := testServer(t, nil)

	req := httptest.NewRequest("GET", "/ready", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeJSON[ReadyResponse](t, resp.Body)
	assert.True(t, result.Ready)
}

func TestListFlows(t *testing.T) {
	server := testServer(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/flows", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeJSON[FlowListResponse](t, resp.Body)
	assert.Equal(t, []string{"release"}, result.Flows)
}

func TestGetFlowPlan(t *testing.T) {
	server := testServer(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/flows/release/plan", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeJSON[FlowPlanResponse](t, resp.Body)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "announce", result.Steps[0].Path)
}

func TestGetFlowPlan_UnknownFlow(t *testing.T) {
	server := testServer(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/flows/nope/plan", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListTasks(t *testing.T) {
	server := testServer(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeJSON[TaskListResponse](t, resp.Body)
	names := make([]string, 0, len(result.Tasks))
	for _, info := range result.Tasks {
		names = append(names, info.Name)
	}
	assert.Contains(t, names, "log_message")
	assert.Contains(t, names, "extract_value")
}

func TestSubmitRun(t *testing.T) {
	server := testServer(t, nil)

	body, _ := json.Marshal(RunSubmitRequest{Flow: "release"})
	req := httptest.NewRequest("POST", "/api/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	submitted := decodeJSON[RunSubmitResponse](t, resp.Body)
	require.NotEmpty(t, submitted.RunID)

	// Poll the status endpoint until the run settles.
	deadline := time.Now().Add(5 * time.Second)
	var record engine.RunRecord
	for time.Now().Before(deadline) {
		req := httptest.NewRequest("GET", "/api/v1/runs/"+submitted.RunID, nil)
		resp, err := server.App().Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		record = decodeJSON[engine.RunRecord](t, resp.Body)
		if record.State != engine.RunStateRunning {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, engine.RunStateCompleted, record.State)
}

func TestSubmitRun_MissingFlow(t *testing.T) {
	server := testServer(t, nil)

	body, _ := json.Marshal(RunSubmitRequest{})
	req := httptest.NewRequest("POST", "/api/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmitRun_UnknownFlow(t *testing.T) {
	server := testServer(t, nil)

	body, _ := json.Marshal(RunSubmitRequest{Flow: "nope"})
	req := httptest.NewRequest("POST", "/api/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGetRun_NotFound(t *testing.T) {
	server := testServer(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/runs/ghost", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAPIKeyAuth(t *testing.T) {
	server := testServer(t, &Config{Address: ":0", APIKey: "secret"})

	// Health stays open.
	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Missing key is rejected.
	req = httptest.NewRequest("GET", "/api/v1/flows", nil)
	resp, err = server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Wrong key is rejected.
	req = httptest.NewRequest("GET", "/api/v1/flows", nil)
	req.Header.Set("X-API-Key", "nope")
	resp, err = server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Correct key passes.
	req = httptest.NewRequest("GET", "/api/v1/flows", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
