package core

import (
	"sync"
	"time"

	"github.com/agentweave/agentweave/internal/util"
)

// EventType identifies a lifecycle notification category. The vocabulary is
// `<subject>:<phase>` and is stable for external consumers.
type EventType string

// Workflow lifecycle events emitted by the scheduler.
const (
	EventWorkflowStart    EventType = "workflow:start"
	EventWorkflowComplete EventType = "workflow:complete"
	EventWorkflowError    EventType = "workflow:error"
	EventWorkflowCancel   EventType = "workflow:cancel"
)

// Step lifecycle events emitted per workflow step.
const (
	EventStepStart    EventType = "step:start"
	EventStepComplete EventType = "step:complete"
	EventStepError    EventType = "step:error"
	EventStepRetry    EventType = "step:retry"
	EventStepSkip     EventType = "step:skip"
)

// Agent execution lifecycle events emitted by runtimes.
const (
	EventExecutionStart    EventType = "execution:start"
	EventExecutionStep     EventType = "execution:step"
	EventExecutionComplete EventType = "execution:complete"
	EventExecutionError    EventType = "execution:error"
	EventExecutionPause    EventType = "execution:pause"
	EventExecutionResume   EventType = "execution:resume"
)

// Tool, messaging, registry and configuration events.
const (
	EventToolCall        EventType = "tool:call"
	EventToolResult      EventType = "tool:result"
	EventToolError       EventType = "tool:error"
	EventMessageSent     EventType = "message:sent"
	EventMessageReceived EventType = "message:received"
	EventAgentRegister   EventType = "agent:register"
	EventAgentUnregister EventType = "agent:unregister"
	EventConfigUpdate    EventType = "config:update"
)

// Event is a fire-and-forget lifecycle notification. After emission it must
// be treated as immutable. Identifier fields are populated where meaningful:
// AgentID for runtime/tool events, WorkflowID + StepID for scheduler events.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	AgentID    string         `json:"agent_id,omitempty"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	StepID     string         `json:"step_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewEvent constructs an event of the given type with a fresh id and UTC
// timestamp. Callers fill identifier / payload fields before emission.
func NewEvent(t EventType) Event {
	return Event{ID: util.NewID(), Type: t, Timestamp: time.Now().UTC()}
}

// Observer receives lifecycle events. Implementations must not block: the
// emitting path offers no backpressure and slow observers delay execution.
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ev Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// Emitter dispatches events to a registered list of observers. There is no
// delivery guarantee and no buffering: dispatch is synchronous, in
// registration order, on the emitting goroutine. A nil *Emitter is valid and
// drops every event, so components can hold one unconditionally.
type Emitter struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter { return &Emitter{} }

// Subscribe appends an observer to the dispatch list.
func (e *Emitter) Subscribe(o Observer) {
	if e == nil || o == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// SubscribeFunc is shorthand for Subscribe(ObserverFunc(fn)).
func (e *Emitter) SubscribeFunc(fn func(ev Event)) { e.Subscribe(ObserverFunc(fn)) }

// Emit dispatches ev to every registered observer.
func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	e.mu.RLock()
	observers := make([]Observer, len(e.observers))
	copy(observers, e.observers)
	e.mu.RUnlock()

	for _, o := range observers {
		o.OnEvent(ev)
	}
}
