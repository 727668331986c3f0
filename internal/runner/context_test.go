package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipewright/flowkit/internal/expression"
	"pipewright/flowkit/pkg/types"
)

func TestExecutionContext_ReservedFieldNamesWinOverReturnValues(t *testing.T) {
	execCtx := NewExecutionContext(nil, nil)
	execCtx.RecordResult(&types.StepResult{
		Path:   "build",
		Status: types.StepCompleted,
		ReturnValues: map[string]any{
			"status": "green",
			"failed": "yes",
			"extra":  "kept",
		},
	})

	exprCtx := execCtx.ExpressionContext()

	ok, err := expression.Evaluate(`steps.build.status == "completed"`, exprCtx)
	require.NoError(t, err)
	assert.True(t, ok, "synthetic status should shadow the return value")

	ok, err = expression.Evaluate(`steps.build.failed == false`, exprCtx)
	require.NoError(t, err)
	assert.True(t, ok, "synthetic failed flag should shadow the return value")

	ok, err = expression.Evaluate(`steps.build.extra == "kept"`, exprCtx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Shadowed return values stay reachable outside expressions.
	values, found := execCtx.StepReturnValues("build")
	require.True(t, found)
	assert.Equal(t, "green", values["status"])
	assert.Equal(t, "yes", values["failed"])
}
