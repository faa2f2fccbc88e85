package workflow

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/internal/util"
)

// WorkflowState is the lifecycle state of one ExecuteWorkflow call.
type WorkflowState string

// Workflow states. Transitions are monotonic forward:
// pending -> running -> {completed|failed|cancelled}.
const (
	StatePending   WorkflowState = "pending"
	StateRunning   WorkflowState = "running"
	StateCompleted WorkflowState = "completed"
	StateFailed    WorkflowState = "failed"
	StateCancelled WorkflowState = "cancelled"
)

var workflowTransitions = map[WorkflowState][]WorkflowState{
	StatePending: {StateRunning, StateCancelled},
	StateRunning: {StateCompleted, StateFailed, StateCancelled},
}

// ExecutionContext is the mutable record of one ExecuteWorkflow call: step
// results, the shared variable namespace, and the disjoint step-id sets
// tracking progress. All methods are safe for concurrent use by step
// goroutines.
//
// Invariants maintained here: runningSteps, completedSteps and failedSteps
// are pairwise disjoint at every instant, and the `step_<id>` variable is
// written exactly once, when <id> transitions into completedSteps.
type ExecutionContext struct {
	ID         string
	Definition *Definition
	StartedAt  time.Time

	mu            sync.Mutex
	state         WorkflowState
	results       map[string]*core.ExecutionResult
	variables     map[string]any
	running       map[string]string // step id -> agent id, for cooperative cancel
	completed     map[string]bool
	failed        map[string]bool
	skipped       map[string]bool
	completedAt   *time.Time
	err           *core.Error
	firstStepErr  *core.Error
	retries       int
	stepsExecuted int
}

// newExecutionContext builds a pending context seeded with variables.input.
func newExecutionContext(def *Definition, input string) *ExecutionContext {
	return &ExecutionContext{
		ID:         util.NewID(),
		Definition: def,
		StartedAt:  time.Now().UTC(),
		state:      StatePending,
		results:    map[string]*core.ExecutionResult{},
		variables:  map[string]any{"input": input},
		running:    map[string]string{},
		completed:  map[string]bool{},
		failed:     map[string]bool{},
		skipped:    map[string]bool{},
	}
}

// State returns the current lifecycle state.
func (ec *ExecutionContext) State() WorkflowState {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state
}

// transition moves the context forward, enforcing monotonic state flow.
func (ec *ExecutionContext) transition(to WorkflowState) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for _, allowed := range workflowTransitions[ec.state] {
		if allowed == to {
			ec.state = to
			if to == StateCompleted || to == StateFailed || to == StateCancelled {
				now := time.Now().UTC()
				ec.completedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("invalid workflow state transition %s -> %s", ec.state, to)
}

// Variable returns the value and existence flag for a variable key.
func (ec *ExecutionContext) Variable(key string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.variables[key]
	return v, ok
}

// SetVariable writes into the shared namespace. Step outputs are written via
// markCompleted; this is for caller-seeded values and conditions.
func (ec *ExecutionContext) SetVariable(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.variables[key] = value
}

// variablesSnapshot returns a copy of the namespace for placeholder binding
// and for seeding agent invocations.
func (ec *ExecutionContext) variablesSnapshot() map[string]any {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	snap := make(map[string]any, len(ec.variables))
	for k, v := range ec.variables {
		snap[k] = v
	}
	return snap
}

// markRunning records a step as in-flight along with its backing agent.
func (ec *ExecutionContext) markRunning(stepID, agentID string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.running[stepID] = agentID
}

// markCompleted moves a step from running to completed, records its result
// and publishes step_<id> into the variable namespace. The variable write
// happens exactly once because a step enters the completed set exactly once.
func (ec *ExecutionContext) markCompleted(stepID string, result *core.ExecutionResult) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	delete(ec.running, stepID)
	if ec.completed[stepID] {
		return
	}
	ec.completed[stepID] = true
	ec.results[stepID] = result
	ec.variables["step_"+stepID] = result.Output
	ec.stepsExecuted++
}

// markFailed moves a step from running to failed and records its result.
// The first non-optional failure is retained for the aggregated error.
func (ec *ExecutionContext) markFailed(stepID string, result *core.ExecutionResult, optional bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	delete(ec.running, stepID)
	ec.failed[stepID] = true
	ec.results[stepID] = result
	if !optional && ec.firstStepErr == nil && result.Err != nil {
		ec.firstStepErr = result.Err
	}
}

// markSkipped records a step as permanently skipped (false condition or
// unsatisfiable dependencies). Skipped steps are neither completed nor failed.
func (ec *ExecutionContext) markSkipped(stepID string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.skipped[stepID] = true
}

// addRetry counts one re-attempt for the aggregated metadata.
func (ec *ExecutionContext) addRetry() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.retries++
}

// depsSatisfied reports whether every dependency of step is completed.
func (ec *ExecutionContext) depsSatisfied(step *Step) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for _, dep := range step.Dependencies {
		if !ec.completed[dep] {
			return false
		}
	}
	return true
}

// resolved reports whether a step has reached a terminal disposition.
func (ec *ExecutionContext) resolved(stepID string) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.completed[stepID] || ec.failed[stepID] || ec.skipped[stepID]
}

// IsCompleted reports whether the step completed successfully.
func (ec *ExecutionContext) IsCompleted(stepID string) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.completed[stepID]
}

// IsFailed reports whether the step failed.
func (ec *ExecutionContext) IsFailed(stepID string) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.failed[stepID]
}

// IsSkipped reports whether the step was skipped.
func (ec *ExecutionContext) IsSkipped(stepID string) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.skipped[stepID]
}

// Result returns the recorded result for a step, or false if none.
func (ec *ExecutionContext) Result(stepID string) (*core.ExecutionResult, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	r, ok := ec.results[stepID]
	return r, ok
}

// RunningSteps returns the in-flight step ids with their agent ids.
func (ec *ExecutionContext) RunningSteps() map[string]string {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	snap := make(map[string]string, len(ec.running))
	for k, v := range ec.running {
		snap[k] = v
	}
	return snap
}

// CompletedSteps returns the completed step ids in sorted order.
func (ec *ExecutionContext) CompletedSteps() []string { return ec.sortedSet(&ec.completed) }

// FailedSteps returns the failed step ids in sorted order.
func (ec *ExecutionContext) FailedSteps() []string { return ec.sortedSet(&ec.failed) }

// SkippedSteps returns the skipped step ids in sorted order.
func (ec *ExecutionContext) SkippedSteps() []string { return ec.sortedSet(&ec.skipped) }

func (ec *ExecutionContext) sortedSet(set *map[string]bool) []string {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ids := make([]string, 0, len(*set))
	for id := range *set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// counters returns aggregate figures for result building.
func (ec *ExecutionContext) counters() (executed, failed, retries int, firstErr *core.Error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.stepsExecuted, len(ec.failed), ec.retries, ec.firstStepErr
}

// setErr records the terminal workflow error.
func (ec *ExecutionContext) setErr(err *core.Error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.err = err
}

// Err returns the terminal workflow error, if any.
func (ec *ExecutionContext) Err() *core.Error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.err
}
