package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/internal/util"
)

// State is the lifecycle state of one execution context.
type State string

// Execution context states. Transitions are monotonic forward
// (idle -> running -> {completed|error}) with paused reachable only from
// running. A paused context may resume, or finish directly in either
// terminal state when the in-flight call returns while it is paused.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateError     State = "error"
)

var allowedTransitions = map[State][]State{
	StateIdle:    {StateRunning},
	StateRunning: {StatePaused, StateCompleted, StateError},
	StatePaused:  {StateRunning, StateCompleted, StateError},
}

// StepType categorizes a record in an execution context's history.
type StepType string

// Step types recorded during an invocation.
const (
	StepReasoning     StepType = "reasoning"
	StepToolCall      StepType = "tool_call"
	StepCommunication StepType = "communication"
	StepDecision      StepType = "decision"
	StepError         StepType = "error"
)

// ExecutionStep is one typed record in an execution context's history.
// Steps are append-only within a context.
type ExecutionStep struct {
	ID       string        `json:"id"`
	Type     StepType      `json:"type"`
	Input    string        `json:"input"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      *core.Error   `json:"error,omitempty"`
}

// ExecutionContext is the mutable record of a single agent invocation: its
// state, variable namespace, ordered step history and timing. A runtime
// holds at most one current context at a time. All methods are safe for
// concurrent use; the scheduler may poke a context (Stop) while the runtime
// is executing it.
type ExecutionContext struct {
	ID        string
	AgentID   string
	StartedAt time.Time

	mu          sync.Mutex
	state       State
	variables   map[string]any
	steps       []ExecutionStep
	completedAt *time.Time
	err         *core.Error
}

// newExecutionContext creates an idle context seeded with vars.
func newExecutionContext(agentID string, vars map[string]any) *ExecutionContext {
	variables := make(map[string]any, len(vars))
	for k, v := range vars {
		variables[k] = v
	}
	return &ExecutionContext{
		ID:        util.NewID(),
		AgentID:   agentID,
		StartedAt: time.Now().UTC(),
		state:     StateIdle,
		variables: variables,
	}
}

// State returns the current lifecycle state.
func (ec *ExecutionContext) State() State {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state
}

// transition moves the context to the target state, enforcing the allowed
// transition graph. It returns an error for any move not in the graph.
func (ec *ExecutionContext) transition(to State) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for _, allowed := range allowedTransitions[ec.state] {
		if allowed == to {
			ec.state = to
			if to == StateCompleted || to == StateError {
				now := time.Now().UTC()
				ec.completedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("invalid state transition %s -> %s", ec.state, to)
}

// Variable returns the value and existence flag for a variable key.
func (ec *ExecutionContext) Variable(key string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.variables[key]
	return v, ok
}

// SetVariable writes a value into the context's variable namespace.
func (ec *ExecutionContext) SetVariable(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.variables[key] = value
}

// variablesRef exposes the live namespace for tool contexts. Tool calls run
// strictly sequentially within an invocation, so handing out the map does
// not race with step recording.
func (ec *ExecutionContext) variablesRef() map[string]any {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.variables
}

// appendStep records a step in the history.
func (ec *ExecutionContext) appendStep(step ExecutionStep) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.steps = append(ec.steps, step)
}

// Steps returns a defensive copy of the step history.
func (ec *ExecutionContext) Steps() []ExecutionStep {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	steps := make([]ExecutionStep, len(ec.steps))
	copy(steps, ec.steps)
	return steps
}

// StepCount returns the number of recorded steps.
func (ec *ExecutionContext) StepCount() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return len(ec.steps)
}

// Err returns the terminal error, if the context finished in StateError.
func (ec *ExecutionContext) Err() *core.Error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.err
}

// setErr records the terminal error.
func (ec *ExecutionContext) setErr(err *core.Error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.err = err
}

// CompletedAt returns the completion timestamp, nil while live.
func (ec *ExecutionContext) CompletedAt() *time.Time {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.completedAt
}

// newStep starts a step record of the given type; callers fill Output,
// Duration and Err before appending.
func newStep(t StepType, input string) ExecutionStep {
	return ExecutionStep{ID: util.NewID(), Type: t, Input: input}
}
