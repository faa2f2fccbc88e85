package agentweave

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentweave/agentweave/agent"
	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/model"
	"github.com/agentweave/agentweave/workflow"
)

func TestEndToEndWorkflow(t *testing.T) {
	weave := New()

	var events []core.EventType
	weave.SubscribeFunc(func(ev core.Event) { events = append(events, ev.Type) })

	gatherModel := model.NewMockModel("gather-model")
	gatherModel.AddResponse("research Go concurrency", "goroutines and channels")
	writeModel := model.NewMockModel("write-model")
	writeModel.AddResponse("summarize: goroutines and channels", "Go ships CSP-style concurrency.")

	_, err := weave.NewAgent(agent.NewConfig("researcher", "Researcher", "researches topics"), gatherModel)
	require.NoError(t, err)
	_, err = weave.NewAgent(agent.NewConfig("writer", "Writer", "writes summaries"), writeModel)
	require.NoError(t, err)

	def := &workflow.Definition{
		ID: "research-and-write",
		Steps: []workflow.Step{
			{ID: "research", AgentID: "researcher", Input: "research ${input}"},
			{ID: "summarize", AgentID: "writer", Input: "summarize: ${step_research}", Dependencies: []string{"research"}},
		},
		Mode: workflow.ModeSequential,
	}

	result, err := weave.ExecuteWorkflow(context.Background(), def, "Go concurrency")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "Go ships CSP-style concurrency.", result.Output.Steps["summarize"])

	// Registration, execution and workflow events all flow through the one emitter.
	assert.Contains(t, events, core.EventAgentRegister)
	assert.Contains(t, events, core.EventWorkflowStart)
	assert.Contains(t, events, core.EventExecutionComplete)
	assert.Contains(t, events, core.EventWorkflowComplete)
}

func TestRegisterAgentRejectsDuplicates(t *testing.T) {
	weave := New()
	mock := model.NewMockModel("m")

	require.NoError(t, weave.RegisterAgent(agent.New(agent.NewConfig("a1", "Agent", "tester"), mock)))
	assert.Error(t, weave.RegisterAgent(agent.New(agent.NewConfig("a1", "Clone", "tester"), mock)))

	assert.True(t, weave.UnregisterAgent("a1"))
	assert.False(t, weave.UnregisterAgent("a1"))
}

func TestSendMessageThroughFacade(t *testing.T) {
	weave := New()
	mock := model.NewMockModel("m")

	require.NoError(t, weave.RegisterAgent(agent.New(agent.NewConfig("alice", "Alice", "sender"), mock)))
	require.NoError(t, weave.RegisterAgent(agent.New(agent.NewConfig("bob", "Bob", "recipient"), mock)))

	msg := core.NewAgentMessage("alice", "bob", "request", "hello bob")
	assert.NoError(t, weave.SendMessage(context.Background(), msg))

	assert.Error(t, weave.SendMessage(context.Background(), core.NewAgentMessage("alice", "ghost", "request", "hi")))
}

func TestFacadeAccessors(t *testing.T) {
	weave := New()

	assert.NotNil(t, weave.Registry())
	assert.NotNil(t, weave.Scheduler())
	assert.NotNil(t, weave.Bus())
	assert.Empty(t, weave.Scheduler().ActiveExecutions())
}
