package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/model"
	"github.com/agentweave/agentweave/tool"
)

func sumTool() tool.Tool {
	return tool.NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		tool.Schema{
			"a": {Kind: tool.KindNumber, Required: true},
			"b": {Kind: tool.KindNumber, Required: true},
		},
		func(tc *tool.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
}

func TestExecuteSimpleResponse(t *testing.T) {
	mock := model.NewMockModel("test-model")
	mock.AddResponse("What is Go?", "Go is a programming language.")

	runtime := New(NewConfig("researcher", "Researcher", "research assistant"), mock)

	result, err := runtime.Execute(context.Background(), "What is Go?", nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Go is a programming language.", result.Output)
	assert.Equal(t, 1, result.Metadata.StepCount)
	assert.Empty(t, result.Metadata.ToolsUsed)
	assert.Equal(t, 1, mock.Calls())
}

func TestExecuteWithToolCalls(t *testing.T) {
	mock := model.NewMockModel("test-model")
	mock.AddToolCalls("add 2 and 3", model.ToolCall{
		ID:        "call-1",
		Name:      "calculate_sum",
		Arguments: json.RawMessage(`{"a": 2, "b": 3}`),
	})

	runtime := New(NewConfig("mathematician", "Mathematician", "does math"), mock,
		func(o *Options) { o.Tools = []tool.Tool{sumTool()} },
	)

	result, err := runtime.Execute(context.Background(), "add 2 and 3", nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"calculate_sum"}, result.Metadata.ToolsUsed)
	assert.Equal(t, 2, result.Metadata.StepCount, "one reasoning step plus one tool step")
}

func TestExecuteToolNotFound(t *testing.T) {
	mock := model.NewMockModel("test-model")
	mock.AddToolCalls("use missing tool", model.ToolCall{
		ID:        "call-1",
		Name:      "nonexistent",
		Arguments: json.RawMessage(`{}`),
	})

	runtime := New(NewConfig("agent-1", "Agent", "tester"), mock)

	result, err := runtime.Execute(context.Background(), "use missing tool", nil)

	require.NoError(t, err, "tool failures are ordinary outcomes, not contract errors")
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, core.ErrCodeToolNotFound, result.Err.Code)
}

func TestExecuteToolFailure(t *testing.T) {
	failing := tool.NewFunctionTool("failing", "always fails", tool.Schema{},
		func(tc *tool.Context, args map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	)

	mock := model.NewMockModel("test-model")
	mock.AddToolCalls("do the thing", model.ToolCall{
		ID:        "call-1",
		Name:      "failing",
		Arguments: json.RawMessage(`{}`),
	})

	runtime := New(NewConfig("agent-1", "Agent", "tester"), mock,
		func(o *Options) { o.Tools = []tool.Tool{failing} },
	)

	result, err := runtime.Execute(context.Background(), "do the thing", nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, core.ErrCodeToolExecution, result.Err.Code)
	assert.Contains(t, result.Err.Error(), "backend unavailable")
}

func TestExecuteModelError(t *testing.T) {
	mock := model.NewMockModel("test-model")
	mock.SetError(errors.New("rate limited"))

	runtime := New(NewConfig("agent-1", "Agent", "tester"), mock)

	result, err := runtime.Execute(context.Background(), "anything", nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, core.ErrCodeExecution, result.Err.Code)
}

func TestExecuteTimeout(t *testing.T) {
	mock := model.NewMockModel("test-model")
	mock.SetLatency(200 * time.Millisecond)

	config := NewConfig("agent-1", "Agent", "tester")
	config.Limits.MaxExecutionTime = 20 * time.Millisecond
	runtime := New(config, mock)

	result, err := runtime.Execute(context.Background(), "slow question", nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, core.ErrCodeTimeout, result.Err.Code)
}

func TestExecuteSeedsVariables(t *testing.T) {
	var seen any
	reader := tool.NewFunctionTool("read_var", "reads a variable", tool.Schema{},
		func(tc *tool.Context, args map[string]any) (any, error) {
			seen, _ = tc.Variable("region")
			return "ok", nil
		},
	)

	mock := model.NewMockModel("test-model")
	mock.AddToolCalls("check region", model.ToolCall{
		ID:        "call-1",
		Name:      "read_var",
		Arguments: json.RawMessage(`{}`),
	})

	runtime := New(NewConfig("agent-1", "Agent", "tester"), mock,
		func(o *Options) { o.Tools = []tool.Tool{reader} },
	)

	_, err := runtime.Execute(context.Background(), "check region", map[string]any{"region": "eu"})

	require.NoError(t, err)
	assert.Equal(t, "eu", seen)
}

func TestExecuteDestroyedRuntime(t *testing.T) {
	runtime := New(NewConfig("agent-1", "Agent", "tester"), model.NewMockModel("m"))
	runtime.Destroy()

	_, err := runtime.Execute(context.Background(), "hello", nil)

	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestExecuteBusyRuntime(t *testing.T) {
	mock := model.NewMockModel("test-model")
	mock.SetLatency(100 * time.Millisecond)

	runtime := New(NewConfig("agent-1", "Agent", "tester"), mock)

	started := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		close(started)
		_, _ = runtime.Execute(context.Background(), "slow", nil)
		close(finished)
	}()

	<-started
	time.Sleep(20 * time.Millisecond) // let the first invocation claim the context

	_, err := runtime.Execute(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrBusy)

	<-finished
}

func TestStatusMetrics(t *testing.T) {
	mock := model.NewMockModel("test-model")
	runtime := New(NewConfig("agent-1", "Agent", "tester"), mock)

	_, err := runtime.Execute(context.Background(), "first", nil)
	require.NoError(t, err)

	mock.SetError(errors.New("boom"))
	_, err = runtime.Execute(context.Background(), "second", nil)
	require.NoError(t, err)

	status := runtime.Status()
	assert.Equal(t, 2, status.TotalExecutions)
	assert.Equal(t, 1, status.SuccessfulExecutions)
	assert.Equal(t, 1, status.FailedExecutions)
	assert.Greater(t, status.AverageExecutionTime, time.Duration(0))
}

func TestPauseResumeWithoutContext(t *testing.T) {
	runtime := New(NewConfig("agent-1", "Agent", "tester"), model.NewMockModel("m"))

	assert.Error(t, runtime.Pause())
	assert.Error(t, runtime.Resume())
	assert.NoError(t, runtime.Stop(), "stopping an idle runtime is a no-op")
}

// pausingModel pauses the live context from inside the provider call,
// simulating an operator pause landing while a call is in flight.
type pausingModel struct {
	runtime *Runtime
	chatErr error
	execCtx *ExecutionContext
}

func (m *pausingModel) Chat(ctx context.Context, req model.Request) (*model.Response, error) {
	m.execCtx = m.runtime.Context()
	if err := m.runtime.Pause(); err != nil {
		return nil, err
	}
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	return &model.Response{Text: "done while paused"}, nil
}

func (m *pausingModel) Info() model.Info {
	return model.Info{Name: "pausing", Provider: "test"}
}

func TestPausedContextFinishesCompleted(t *testing.T) {
	llm := &pausingModel{}
	runtime := New(NewConfig("agent-1", "Agent", "tester"), llm)
	llm.runtime = runtime

	result, err := runtime.Execute(context.Background(), "carry on", nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "done while paused", result.Output)
	require.NotNil(t, llm.execCtx)
	assert.Equal(t, StateCompleted, llm.execCtx.State())
}

func TestPausedContextFinishesErrored(t *testing.T) {
	llm := &pausingModel{chatErr: errors.New("provider unavailable")}
	runtime := New(NewConfig("agent-1", "Agent", "tester"), llm)
	llm.runtime = runtime

	result, err := runtime.Execute(context.Background(), "carry on", nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, core.ErrCodeExecution, result.Err.Code)
	require.NotNil(t, llm.execCtx)
	assert.Equal(t, StateError, llm.execCtx.State(), "a failure while paused still reaches the error state")
}

func TestResumeReturnsPausedContextToRunning(t *testing.T) {
	execCtx := newExecutionContext("agent-1", nil)
	require.NoError(t, execCtx.transition(StateRunning))
	require.NoError(t, execCtx.transition(StatePaused))

	runtime := New(NewConfig("agent-1", "Agent", "tester"), model.NewMockModel("m"))
	runtime.current = execCtx

	require.NoError(t, runtime.Resume())
	assert.Equal(t, StateRunning, execCtx.State())
}

func TestAddRemoveTool(t *testing.T) {
	runtime := New(NewConfig("agent-1", "Agent", "tester"), model.NewMockModel("m"))

	runtime.AddTool(sumTool())
	assert.True(t, runtime.HasTool("calculate_sum"))

	assert.True(t, runtime.RemoveTool("calculate_sum"))
	assert.False(t, runtime.HasTool("calculate_sum"))
	assert.False(t, runtime.RemoveTool("calculate_sum"))
}

func TestUpdateConfig(t *testing.T) {
	runtime := New(NewConfig("agent-1", "Agent", "tester"), model.NewMockModel("m"))
	before := runtime.Config().UpdatedAt

	time.Sleep(time.Millisecond)
	runtime.UpdateConfig(func(c *Config) { c.Role = "reviewer" })

	updated := runtime.Config()
	assert.Equal(t, "reviewer", updated.Role)
	assert.True(t, updated.UpdatedAt.After(before))
}

func TestExecuteEmitsLifecycleEvents(t *testing.T) {
	emitter := core.NewEmitter()
	var types []core.EventType
	emitter.SubscribeFunc(func(ev core.Event) { types = append(types, ev.Type) })

	mock := model.NewMockModel("test-model")
	runtime := New(NewConfig("agent-1", "Agent", "tester"), mock,
		func(o *Options) { o.Emitter = emitter },
	)

	_, err := runtime.Execute(context.Background(), "hello", nil)
	require.NoError(t, err)

	assert.Contains(t, types, core.EventExecutionStart)
	assert.Contains(t, types, core.EventExecutionComplete)
}
