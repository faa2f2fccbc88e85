package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/logging"
)

// DefaultStepTimeout bounds a single step when the step declares no timeout
// of its own.
const DefaultStepTimeout = 30 * time.Second

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	// Emitter receives workflow and step lifecycle events. Nil disables emission.
	Emitter *core.Emitter
	// Logger receives scheduler instrumentation. Nil means no logging.
	Logger logging.Logger
	// DefaultStepTimeout overrides the package default for steps without an
	// explicit timeout.
	DefaultStepTimeout time.Duration
}

// Scheduler executes workflow definitions against a registry of agents. It
// resolves dependency order, applies the definition's execution mode and
// error policy, binds ${name} placeholders against the shared variable
// namespace and bounds every step with a timeout.
//
// A single scheduler may run many workflows concurrently. Steps that target
// the same agent are serialized with a per-agent lock because an agent
// runtime holds at most one live execution context.
type Scheduler struct {
	registry    *core.Registry
	emitter     *core.Emitter
	logger      logging.Logger
	stepTimeout time.Duration

	mu      sync.Mutex
	active  map[string]*activeRun
	agentMu map[string]*sync.Mutex
}

type activeRun struct {
	execCtx *ExecutionContext
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler resolving agents from registry.
func NewScheduler(registry *core.Registry, optFns ...func(o *SchedulerOptions)) *Scheduler {
	opts := SchedulerOptions{DefaultStepTimeout: DefaultStepTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.DefaultStepTimeout <= 0 {
		opts.DefaultStepTimeout = DefaultStepTimeout
	}

	return &Scheduler{
		registry:    registry,
		emitter:     opts.Emitter,
		logger:      logging.OrNoOp(opts.Logger),
		stepTimeout: opts.DefaultStepTimeout,
		active:      make(map[string]*activeRun),
		agentMu:     make(map[string]*sync.Mutex),
	}
}

// ExecuteWorkflow runs def to completion and returns the aggregated result.
// The call blocks until every launched step has reached a terminal
// disposition. A non-nil error is returned only for contract violations
// (invalid definition); step and agent failures are reported inside the
// Result with Success set to false.
func (s *Scheduler) ExecuteWorkflow(ctx context.Context, def *Definition, input string) (*Result, error) {
	if def == nil {
		return nil, fmt.Errorf("cannot execute a nil workflow definition")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	execCtx := newExecutionContext(def, input)

	var runCtx context.Context
	var cancel context.CancelFunc
	if def.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, def.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	s.mu.Lock()
	s.active[execCtx.ID] = &activeRun{execCtx: execCtx, cancel: cancel}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, execCtx.ID)
		s.mu.Unlock()
	}()

	if err := execCtx.transition(StateRunning); err != nil {
		return nil, err
	}

	ev := core.NewEvent(core.EventWorkflowStart)
	ev.WorkflowID = def.ID
	ev.Payload = map[string]any{"execution_id": execCtx.ID, "name": def.Name, "mode": string(def.Mode)}
	s.emitter.Emit(ev)
	s.logger.Info("workflow.start", "workflow_id", def.ID, "execution_id", execCtx.ID, "mode", def.Mode, "steps", len(def.Steps))

	switch def.Mode {
	case ModeSequential:
		s.runSequential(runCtx, execCtx)
	case ModeParallel:
		s.runParallel(runCtx, execCtx, cancel)
	default:
		s.runMixed(runCtx, execCtx, cancel)
	}

	s.finalize(runCtx, execCtx)

	result := buildResult(execCtx, time.Since(start))
	if sl, ok := s.logger.(*logging.StructuredLogger); ok {
		var cause error
		if result.Err != nil {
			cause = result.Err
		}
		sl.WithWorkflow(def.ID, execCtx.ID).LogWorkflowExecution(def.Name, result.Metadata.StepsExecuted, result.Metadata.ExecutionTime, result.Success, cause)
	}
	return result, nil
}

// CancelWorkflow cancels a running execution by id. The id is published in
// the workflow:start event payload and via ActiveExecutions. Running steps
// are stopped cooperatively: the execution context is cancelled and the
// backing agents are asked to stop.
func (s *Scheduler) CancelWorkflow(executionID string) error {
	s.mu.Lock()
	run, ok := s.active[executionID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no active workflow execution %q", executionID)
	}

	if err := run.execCtx.transition(StateCancelled); err != nil {
		return err
	}
	run.cancel()

	for _, agentID := range run.execCtx.RunningSteps() {
		if ag, found := s.registry.Get(agentID); found {
			if err := ag.Stop(); err != nil {
				s.logger.Warn("workflow.cancel.agent_stop_failed", "agent_id", agentID, "error", err.Error())
			}
		}
	}

	s.logger.Info("workflow.cancel", "execution_id", executionID)
	return nil
}

// ActiveExecutions returns the ids of currently running workflow executions.
func (s *Scheduler) ActiveExecutions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

// runSequential executes steps in declared order, one at a time. A step
// whose dependencies did not complete is skipped, not failed.
func (s *Scheduler) runSequential(ctx context.Context, execCtx *ExecutionContext) {
	def := execCtx.Definition
	for i := range def.Steps {
		step := &def.Steps[i]
		if ctx.Err() != nil {
			return
		}
		if !execCtx.depsSatisfied(step) {
			s.skipStep(execCtx, step, "unsatisfied dependencies")
			continue
		}
		if step.Condition != nil && !step.Condition(execCtx) {
			s.skipStep(execCtx, step, "condition false")
			continue
		}
		if err := s.runStep(ctx, execCtx, step); err != nil && !step.Optional && def.ErrorHandling != Continue {
			return
		}
	}
}

// runParallel launches every step at once under the concurrency limiter,
// ignoring declared dependencies. Under fail_fast the first non-optional
// failure cancels the run context so unstarted steps are skipped.
func (s *Scheduler) runParallel(ctx context.Context, execCtx *ExecutionContext, cancel context.CancelFunc) {
	def := execCtx.Definition
	limiter := core.NewLimiter(s.concurrency(def))

	var wg sync.WaitGroup
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.Condition != nil && !step.Condition(execCtx) {
			s.skipStep(execCtx, step, "condition false")
			continue
		}
		wg.Add(1)
		go func(st *Step) {
			defer wg.Done()
			if err := limiter.Acquire(ctx); err != nil {
				execCtx.markSkipped(st.ID)
				return
			}
			defer limiter.Release()
			if err := s.runStep(ctx, execCtx, st); err != nil && !st.Optional && def.ErrorHandling != Continue {
				cancel()
			}
		}(step)
	}
	wg.Wait()
}

// runMixed performs breadth-expanding topological execution: after every
// step that reaches a terminal disposition the pending set is re-scanned and
// every step whose dependencies are now complete launches, bounded by the
// concurrency limiter. Steps whose dependencies failed or were skipped can
// never become ready and are skipped.
func (s *Scheduler) runMixed(ctx context.Context, execCtx *ExecutionContext, cancel context.CancelFunc) {
	def := execCtx.Definition
	limiter := core.NewLimiter(s.concurrency(def))

	done := make(chan struct{}, len(def.Steps))
	launched := make(map[string]bool, len(def.Steps))
	inFlight := 0

	for {
		if ctx.Err() == nil {
			for i := range def.Steps {
				step := &def.Steps[i]
				if launched[step.ID] {
					continue
				}
				if s.depsUnsatisfiable(execCtx, step) {
					launched[step.ID] = true
					s.skipStep(execCtx, step, "unsatisfied dependencies")
					continue
				}
				if !execCtx.depsSatisfied(step) {
					continue
				}
				if step.Condition != nil && !step.Condition(execCtx) {
					launched[step.ID] = true
					s.skipStep(execCtx, step, "condition false")
					continue
				}

				launched[step.ID] = true
				inFlight++
				go func(st *Step) {
					defer func() { done <- struct{}{} }()
					if err := limiter.Acquire(ctx); err != nil {
						execCtx.markSkipped(st.ID)
						return
					}
					defer limiter.Release()
					if err := s.runStep(ctx, execCtx, st); err != nil && !st.Optional && def.ErrorHandling != Continue {
						cancel()
					}
				}(step)
			}
		}

		if inFlight == 0 {
			return
		}
		<-done
		inFlight--
	}
}

// runStep executes one step including its retry loop and emits the step
// lifecycle events. It returns the final error, or nil when an attempt
// completed. Optional-step failures are returned too; the caller decides
// whether they abort the workflow.
func (s *Scheduler) runStep(ctx context.Context, execCtx *ExecutionContext, step *Step) *core.Error {
	def := execCtx.Definition

	ev := core.NewEvent(core.EventStepStart)
	ev.WorkflowID, ev.StepID, ev.AgentID = def.ID, step.ID, step.AgentID
	s.emitter.Emit(ev)
	s.logger.Debug("workflow.step.start", "workflow_id", def.ID, "step_id", step.ID, "agent_id", step.AgentID)

	attempts := 1
	if def.ErrorHandling == Retry && step.Retry != nil {
		attempts = step.Retry.MaxAttempts
	}

	var lastErr *core.Error
	var lastResult *core.ExecutionResult
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			execCtx.addRetry()
			rev := core.NewEvent(core.EventStepRetry)
			rev.WorkflowID, rev.StepID, rev.AgentID = def.ID, step.ID, step.AgentID
			rev.Payload = map[string]any{"attempt": attempt, "max_attempts": attempts}
			s.emitter.Emit(rev)
			s.logger.Debug("workflow.step.retry", "step_id", step.ID, "attempt", attempt)
			if !sleepCtx(ctx, step.Retry.delayFor(attempt-1)) {
				break
			}
		}

		result, stepErr := s.executeOnce(ctx, execCtx, step)
		if stepErr == nil {
			execCtx.markCompleted(step.ID, result)
			cev := core.NewEvent(core.EventStepComplete)
			cev.WorkflowID, cev.StepID, cev.AgentID = def.ID, step.ID, step.AgentID
			s.emitter.Emit(cev)
			s.logger.Debug("workflow.step.complete", "step_id", step.ID, "attempt", attempt)
			return nil
		}

		lastErr, lastResult = stepErr, result
		s.logger.Warn("workflow.step.attempt_failed", "step_id", step.ID, "attempt", attempt, "error", stepErr.Error())
		if ctx.Err() != nil {
			break
		}
	}

	if lastResult == nil {
		lastResult = &core.ExecutionResult{Success: false}
	}
	lastResult.Err = lastErr
	execCtx.markFailed(step.ID, lastResult, step.Optional)

	eev := core.NewEvent(core.EventStepError)
	eev.WorkflowID, eev.StepID, eev.AgentID = def.ID, step.ID, step.AgentID
	eev.Payload = map[string]any{"error": lastErr.Error(), "optional": step.Optional}
	s.emitter.Emit(eev)

	return lastErr
}

// executeOnce performs a single attempt: resolve the agent, bind the input
// template and run under the step deadline. The agent call runs in its own
// goroutine so a step that blows its deadline surfaces TIMEOUT immediately
// while the agent winds down cooperatively through context cancellation.
func (s *Scheduler) executeOnce(ctx context.Context, execCtx *ExecutionContext, step *Step) (*core.ExecutionResult, *core.Error) {
	ag, ok := s.registry.Get(step.AgentID)
	if !ok {
		return nil, core.NewError(core.ErrCodeAgentNotFound, "agent %q is not registered", step.AgentID).WithStep(step.ID)
	}

	input := BindVariables(step.Input, execCtx.variablesSnapshot())

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = s.stepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCtx.markRunning(step.ID, step.AgentID)

	type outcome struct {
		result *core.ExecutionResult
		err    error
	}
	// Buffered so a late-finishing agent can hand off its outcome after the
	// deadline fired and nobody is receiving anymore.
	out := make(chan outcome, 1)
	agentMu := s.agentLock(step.AgentID)
	go func() {
		agentMu.Lock()
		defer agentMu.Unlock()
		result, err := ag.Execute(stepCtx, input, execCtx.variablesSnapshot())
		out <- outcome{result: result, err: err}
	}()

	select {
	case o := <-out:
		if o.err != nil {
			return nil, core.WrapError(core.ErrCodeExecution, o.err, "agent %q rejected execution", step.AgentID).WithStep(step.ID)
		}
		if !o.result.Success {
			stepErr := o.result.Err
			if stepErr == nil {
				stepErr = core.NewError(core.ErrCodeExecution, "agent %q reported failure without detail", step.AgentID)
			}
			return o.result, stepErr.WithStep(step.ID)
		}
		return o.result, nil
	case <-stepCtx.Done():
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, core.NewError(core.ErrCodeTimeout, "step %q exceeded its %s timeout", step.ID, timeout).WithStep(step.ID)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, core.WrapError(core.ErrCodeTimeout, ctx.Err(), "workflow deadline expired during step %q", step.ID).WithStep(step.ID)
		}
		return nil, core.WrapError(core.ErrCodeWorkflowExecution, ctx.Err(), "step %q interrupted before completion", step.ID).WithStep(step.ID)
	}
}

// finalize marks unresolved steps skipped, settles the terminal state and
// emits the closing workflow event.
func (s *Scheduler) finalize(runCtx context.Context, execCtx *ExecutionContext) {
	def := execCtx.Definition
	for i := range def.Steps {
		if !execCtx.resolved(def.Steps[i].ID) {
			execCtx.markSkipped(def.Steps[i].ID)
		}
	}

	_, _, _, firstErr := execCtx.counters()

	switch {
	case execCtx.State() == StateCancelled:
		execCtx.setErr(core.NewError(core.ErrCodeWorkflowExecution, "workflow %q was cancelled", def.ID))
		ev := core.NewEvent(core.EventWorkflowCancel)
		ev.WorkflowID = def.ID
		ev.Payload = map[string]any{"execution_id": execCtx.ID}
		s.emitter.Emit(ev)
		s.logger.Info("workflow.cancelled", "workflow_id", def.ID, "execution_id", execCtx.ID)

	case firstErr != nil:
		if err := execCtx.transition(StateFailed); err != nil {
			s.logger.Warn("workflow.finalize.transition_failed", "error", err.Error())
		}
		execCtx.setErr(firstErr)
		ev := core.NewEvent(core.EventWorkflowError)
		ev.WorkflowID = def.ID
		ev.Payload = map[string]any{"execution_id": execCtx.ID, "error": firstErr.Error()}
		s.emitter.Emit(ev)
		s.logger.Error("workflow.failed", "workflow_id", def.ID, "execution_id", execCtx.ID, "error", firstErr.Error())

	case runCtx.Err() != nil:
		if err := execCtx.transition(StateFailed); err != nil {
			s.logger.Warn("workflow.finalize.transition_failed", "error", err.Error())
		}
		var wfErr *core.Error
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			wfErr = core.NewError(core.ErrCodeTimeout, "workflow %q exceeded its %s timeout", def.ID, def.Timeout)
		} else {
			wfErr = core.WrapError(core.ErrCodeWorkflowExecution, runCtx.Err(), "workflow %q interrupted", def.ID)
		}
		execCtx.setErr(wfErr)
		ev := core.NewEvent(core.EventWorkflowError)
		ev.WorkflowID = def.ID
		ev.Payload = map[string]any{"execution_id": execCtx.ID, "error": wfErr.Error()}
		s.emitter.Emit(ev)
		s.logger.Error("workflow.failed", "workflow_id", def.ID, "execution_id", execCtx.ID, "error", wfErr.Error())

	default:
		if err := execCtx.transition(StateCompleted); err != nil {
			s.logger.Warn("workflow.finalize.transition_failed", "error", err.Error())
		}
		ev := core.NewEvent(core.EventWorkflowComplete)
		ev.WorkflowID = def.ID
		ev.Payload = map[string]any{"execution_id": execCtx.ID, "completed": len(execCtx.CompletedSteps())}
		s.emitter.Emit(ev)
		s.logger.Info("workflow.complete", "workflow_id", def.ID, "execution_id", execCtx.ID)
	}
}

// skipStep records a permanent skip and emits step:skip.
func (s *Scheduler) skipStep(execCtx *ExecutionContext, step *Step, reason string) {
	execCtx.markSkipped(step.ID)
	ev := core.NewEvent(core.EventStepSkip)
	ev.WorkflowID, ev.StepID, ev.AgentID = execCtx.Definition.ID, step.ID, step.AgentID
	ev.Payload = map[string]any{"reason": reason}
	s.emitter.Emit(ev)
	s.logger.Debug("workflow.step.skip", "step_id", step.ID, "reason", reason)
}

// depsUnsatisfiable reports whether any dependency reached a terminal
// disposition other than completed, which makes the step permanently
// unrunnable.
func (s *Scheduler) depsUnsatisfiable(execCtx *ExecutionContext, step *Step) bool {
	for _, dep := range step.Dependencies {
		if execCtx.IsFailed(dep) || execCtx.IsSkipped(dep) {
			return true
		}
	}
	return false
}

// concurrency returns the effective step concurrency bound for def.
func (s *Scheduler) concurrency(def *Definition) int {
	if def.MaxConcurrency > 0 {
		return def.MaxConcurrency
	}
	return len(def.Steps)
}

// agentLock returns the mutex serializing executions on one agent.
func (s *Scheduler) agentLock(agentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.agentMu[agentID]
	if !ok {
		mu = &sync.Mutex{}
		s.agentMu[agentID] = mu
	}
	return mu
}

// sleepCtx waits for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
