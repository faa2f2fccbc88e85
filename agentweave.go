// Package agentweave provides a high-level façade over the orchestration
// building blocks (agent registry, workflow scheduler, message bus and event
// emitter) enabling rapid construction of multi-agent systems. Most
// applications interact with this package by:
//  1. Creating an AgentWeave via New() (optionally overriding the defaults)
//  2. Registering one or more agents built with the agent package
//  3. Executing workflow definitions (ExecuteWorkflow) or exchanging
//     messages between agents (SendMessage, Broadcast)
//
// The façade wires the shared registry and emitter into every component so
// observers subscribed once see the full lifecycle event stream. All
// defaults are safe for local development and testing; production
// deployments typically supply a structured logger.
package agentweave

import (
	"context"
	"time"

	"github.com/agentweave/agentweave/agent"
	"github.com/agentweave/agentweave/bus"
	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/logging"
	"github.com/agentweave/agentweave/model"
	"github.com/agentweave/agentweave/tool"
	"github.com/agentweave/agentweave/workflow"
)

// Options configures the AgentWeave instance.
type Options struct {
	// Emitter dispatches lifecycle events to subscribed observers. Defaults
	// to a fresh emitter; supply a shared one to merge event streams across
	// instances.
	Emitter *core.Emitter

	// Logger receives instrumentation from every component. Defaults to the
	// NoOp logger.
	Logger logging.Logger

	// DefaultStepTimeout bounds workflow steps that declare no timeout of
	// their own. Zero keeps the scheduler default.
	DefaultStepTimeout time.Duration
}

// AgentWeave is the high-level façade aggregating the registry, scheduler
// and message bus around one shared event emitter.
type AgentWeave struct {
	opts      Options
	registry  *core.Registry
	scheduler *workflow.Scheduler
	bus       *bus.MessageBus
	emitter   *core.Emitter
}

// New creates a new AgentWeave instance with optional overrides.
func New(optFns ...func(o *Options)) *AgentWeave {
	opts := Options{
		Emitter: core.NewEmitter(),
		Logger:  logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := core.NewRegistry(func(o *core.RegistryOptions) {
		o.Emitter = opts.Emitter
	})

	scheduler := workflow.NewScheduler(registry, func(o *workflow.SchedulerOptions) {
		o.Emitter = opts.Emitter
		o.Logger = opts.Logger
		o.DefaultStepTimeout = opts.DefaultStepTimeout
	})

	messageBus := bus.New(registry, func(o *bus.Options) {
		o.Emitter = opts.Emitter
		o.Logger = opts.Logger
	})

	return &AgentWeave{
		opts:      opts,
		registry:  registry,
		scheduler: scheduler,
		bus:       messageBus,
		emitter:   opts.Emitter,
	}
}

// Registry exposes the shared agent registry.
func (w *AgentWeave) Registry() *core.Registry { return w.registry }

// Scheduler exposes the workflow scheduler.
func (w *AgentWeave) Scheduler() *workflow.Scheduler { return w.scheduler }

// Bus exposes the message bus.
func (w *AgentWeave) Bus() *bus.MessageBus { return w.bus }

// Subscribe registers an observer on the shared event emitter.
func (w *AgentWeave) Subscribe(o core.Observer) { w.emitter.Subscribe(o) }

// SubscribeFunc registers a plain function as an observer.
func (w *AgentWeave) SubscribeFunc(fn func(ev core.Event)) { w.emitter.SubscribeFunc(fn) }

// Emitter exposes the shared event emitter.
func (w *AgentWeave) Emitter() *core.Emitter { return w.emitter }

// RegisterAgent adds an agent to the shared registry.
func (w *AgentWeave) RegisterAgent(a core.Agent) error { return w.registry.Register(a) }

// NewAgent builds an agent runtime wired to the shared emitter and logger,
// registers it and returns it. Use agent.New directly when the runtime needs
// its own emitter.
func (w *AgentWeave) NewAgent(config agent.Config, llm model.Model, tools ...tool.Tool) (*agent.Runtime, error) {
	runtime := agent.New(config, llm, func(o *agent.Options) {
		o.Tools = tools
		o.Emitter = w.emitter
		o.Logger = w.opts.Logger
	})
	if err := w.registry.Register(runtime); err != nil {
		return nil, err
	}
	return runtime, nil
}

// UnregisterAgent removes an agent by id, reporting whether it was present.
func (w *AgentWeave) UnregisterAgent(id string) bool { return w.registry.Unregister(id) }

// ExecuteWorkflow runs a workflow definition to completion.
func (w *AgentWeave) ExecuteWorkflow(ctx context.Context, def *workflow.Definition, input string) (*workflow.Result, error) {
	return w.scheduler.ExecuteWorkflow(ctx, def, input)
}

// CancelWorkflow cancels a running workflow execution by id.
func (w *AgentWeave) CancelWorkflow(executionID string) error {
	return w.scheduler.CancelWorkflow(executionID)
}

// SendMessage delivers a message between registered agents.
func (w *AgentWeave) SendMessage(ctx context.Context, msg core.AgentMessage) error {
	return w.bus.SendMessage(ctx, msg)
}

// Broadcast sends content from one agent to every registered agent.
func (w *AgentWeave) Broadcast(ctx context.Context, from, msgType, content string) error {
	return w.bus.Broadcast(ctx, from, msgType, content)
}
