package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipewright/flowkit/internal/task"
	"pipewright/flowkit/pkg/credentials"
)

// fakeContext is a minimal task.Context for tests.
type fakeContext struct {
	steps  map[string]map[string]any
	config map[string]any
}

func (f *fakeContext) StepReturnValues(path string) (map[string]any, bool) {
	values, ok := f.steps[path]
	return values, ok
}

func (f *fakeContext) Config(key string) (any, bool) {
	val, ok := f.config[key]
	return val, ok
}

func (f *fakeContext) Credentials() credentials.Provider {
	return nil
}

func TestRegisterAll(t *testing.T) {
	registry := task.NewRegistry()
	RegisterAll(registry)

	assert.Equal(t, []string{"extract_value", "log_message", "set_value", "sleep_seconds"}, registry.Names())
}

func TestLogMessage(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		wantErr bool
	}{
		{
			name:    "info level by default",
			options: map[string]any{"message": "deploy finished"},
		},
		{
			name:    "explicit warn level",
			options: map[string]any{"message": "flaky test", "level": "warn"},
		},
		{
			name:    "unknown level",
			options: map[string]any{"message": "hi", "level": "loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := LogMessage().Run(context.Background(), &fakeContext{}, tt.options)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.options["message"], values["message"])
		})
	}
}

func TestSetValue(t *testing.T) {
	values, err := SetValue().Run(context.Background(), &fakeContext{}, map[string]any{
		"name":  "environment",
		"value": "staging",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"environment": "staging"}, values)
}

func TestSetValue_MissingValue(t *testing.T) {
	_, err := SetValue().Run(context.Background(), &fakeContext{}, map[string]any{
		"name": "environment",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value")
}

func TestSleepSeconds(t *testing.T) {
	start := time.Now()
	values, err := SleepSeconds().Run(context.Background(), &fakeContext{}, map[string]any{
		"seconds": 0.01,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.Equal(t, 0.01, values["slept_seconds"])
}

func TestSleepSeconds_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := SleepSeconds().Run(ctx, &fakeContext{}, map[string]any{"seconds": 60})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSleepSeconds_Negative(t *testing.T) {
	_, err := SleepSeconds().Run(context.Background(), &fakeContext{}, map[string]any{"seconds": -1})
	require.Error(t, err)
}

func TestExtractValue(t *testing.T) {
	execCtx := &fakeContext{
		steps: map[string]map[string]any{
			"ci/deploy": {
				"artifacts": []any{
					map[string]any{"name": "api", "url": "https://example.com/api"},
					map[string]any{"name": "web", "url": "https://example.com/web"},
				},
			},
		},
	}

	tests := []struct {
		name    string
		options map[string]any
		want    map[string]any
		wantErr string
	}{
		{
			name: "single match from step return values",
			options: map[string]any{
				"expression": "$.artifacts[0].url",
				"step":       "ci/deploy",
			},
			want: map[string]any{"value": "https://example.com/api", "matched": true},
		},
		{
			name: "multiple matches collect into a list",
			options: map[string]any{
				"expression": "$.artifacts[*].name",
				"step":       "ci/deploy",
			},
			want: map[string]any{"value": []any{"api", "web"}, "matched": true},
		},
		{
			name: "literal source wins over step",
			options: map[string]any{
				"expression": "$.status",
				"source":     map[string]any{"status": "green"},
				"step":       "ci/deploy",
			},
			want: map[string]any{"value": "green", "matched": true},
		},
		{
			name: "no match falls back to default",
			options: map[string]any{
				"expression": "$.missing",
				"step":       "ci/deploy",
				"default":    "n/a",
			},
			want: map[string]any{"value": "n/a", "matched": false},
		},
		{
			name: "unknown step falls back to default",
			options: map[string]any{
				"expression": "$.status",
				"step":       "nope",
				"default":    "n/a",
			},
			want: map[string]any{"value": "n/a", "matched": false},
		},
		{
			name: "no match without default fails",
			options: map[string]any{
				"expression": "$.missing",
				"step":       "ci/deploy",
			},
			wantErr: "returned no results",
		},
		{
			name: "unknown step without default fails",
			options: map[string]any{
				"expression": "$.status",
				"step":       "nope",
			},
			wantErr: "no return values recorded",
		},
		{
			name: "neither source nor step",
			options: map[string]any{
				"expression": "$.status",
			},
			wantErr: "either 'source' or 'step'",
		},
		{
			name: "invalid expression",
			options: map[string]any{
				"expression": "$[",
				"step":       "ci/deploy",
			},
			wantErr: "invalid JSONPath",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := ExtractValue().Run(context.Background(), execCtx, tt.options)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, values)
		})
	}
}

func TestBuiltinSchemasValidate(t *testing.T) {
	registry := task.NewRegistry()
	RegisterAll(registry)

	logTask, err := registry.Get("log_message")
	require.NoError(t, err)

	err = task.ValidateOptions(logTask.Name(), logTask.OptionSchema(), map[string]any{
		"message": "ok",
		"volume":  11,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown option 'volume'")
}
