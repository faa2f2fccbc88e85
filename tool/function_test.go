package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/logging"
)

func newTestContext(vars map[string]any) *Context {
	if vars == nil {
		vars = map[string]any{}
	}
	return NewContext(context.Background(), "agent-1", "call-1", vars, logging.NoOpLogger{})
}

func TestFunctionToolExecute(t *testing.T) {
	sumTool := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		Schema{
			"a": {Kind: KindNumber, Required: true},
			"b": {Kind: KindNumber, Required: true},
		},
		func(tc *Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	result, err := sumTool.Execute(newTestContext(nil), map[string]any{"a": 2, "b": 3})

	require.NoError(t, err)
	assert.Equal(t, float64(5), result)
	assert.Equal(t, "calculate_sum", sumTool.Name())
	assert.Equal(t, "Calculate the sum of two numbers", sumTool.Description())
}

func TestFunctionToolValidationError(t *testing.T) {
	echoTool := NewFunctionTool(
		"echo",
		"Echo the input",
		Schema{"text": {Kind: KindString, Required: true}},
		func(tc *Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)

	_, err := echoTool.Execute(newTestContext(nil), map[string]any{})

	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrCodeValidation))
	assert.Contains(t, err.Error(), `field "text"`)
}

func TestFunctionToolPropagatesFunctionError(t *testing.T) {
	boom := errors.New("downstream unavailable")
	failing := NewFunctionTool("failing", "always fails", Schema{},
		func(tc *Context, args map[string]any) (any, error) {
			return nil, boom
		},
	)

	_, err := failing.Execute(newTestContext(nil), map[string]any{})

	assert.ErrorIs(t, err, boom)
}

func TestFunctionToolReceivesSanitizedArgs(t *testing.T) {
	var seen map[string]any
	capture := NewFunctionTool("capture", "records its args",
		Schema{
			"limit": {Kind: KindNumber, Default: float64(10)},
			"query": {Kind: KindString},
		},
		func(tc *Context, args map[string]any) (any, error) {
			seen = args
			return "ok", nil
		},
	)

	_, err := capture.Execute(newTestContext(nil), map[string]any{
		"query":   "golang",
		"unknown": "dropped",
	})

	require.NoError(t, err)
	assert.Equal(t, float64(10), seen["limit"])
	assert.Equal(t, "golang", seen["query"])
	assert.NotContains(t, seen, "unknown")
}

func TestToolContextVariables(t *testing.T) {
	vars := map[string]any{"region": "eu"}
	shared := NewFunctionTool("shared", "reads and writes invocation variables",
		Schema{},
		func(tc *Context, args map[string]any) (any, error) {
			region, ok := tc.Variable("region")
			require.True(t, ok)
			tc.SetVariable("seen_region", region)
			return region, nil
		},
	)

	result, err := shared.Execute(newTestContext(vars), map[string]any{})

	require.NoError(t, err)
	assert.Equal(t, "eu", result)
	assert.Equal(t, "eu", vars["seen_region"], "variable writes land in the shared namespace")
}
