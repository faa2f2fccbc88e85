package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/logging"
	"github.com/agentweave/agentweave/model"
	"github.com/agentweave/agentweave/tool"
)

// ErrDestroyed is returned when Execute is called on a destroyed runtime.
// This is a caller contract violation, not an ordinary execution failure.
var ErrDestroyed = errors.New("agent runtime has been destroyed")

// ErrBusy is returned when Execute is called while another execution context
// is live on the same runtime. A runtime holds exactly one live context at a
// time; callers that may run the same instance concurrently must serialize
// (the workflow scheduler does this per agent id).
var ErrBusy = errors.New("agent runtime already has a live execution context")

// Options configures a Runtime instance. Use functional options with New to
// override defaults.
type Options struct {
	// Tools attached at construction; more can be added later via AddTool.
	Tools []tool.Tool
	// Emitter receives execution/tool/config lifecycle events. Nil disables emission.
	Emitter *core.Emitter
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// Runtime executes one agent's reason -> (optionally call tools) -> respond
// loop for a single input. It implements core.Agent. Public methods are safe
// for concurrent use, but only one invocation may be live at a time.
type Runtime struct {
	mu        sync.Mutex
	config    Config
	llm       model.Model
	tools     map[string]tool.Tool
	status    Status
	current   *ExecutionContext
	destroyed bool

	emitter *core.Emitter
	logger  logging.Logger
}

// New constructs a Runtime for the given config and model backend.
func New(config Config, llm model.Model, optFns ...func(o *Options)) *Runtime {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	tools := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		tools[t.Name()] = t
	}

	return &Runtime{
		config:  config,
		llm:     llm,
		tools:   tools,
		emitter: opts.Emitter,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// ID implements core.Agent.
func (r *Runtime) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config.ID
}

// Name implements core.Agent.
func (r *Runtime) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config.Name
}

// Config returns a copy of the current configuration.
func (r *Runtime) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// Status returns a copy of the rolling execution metrics.
func (r *Runtime) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Context returns the live execution context, or nil when idle.
func (r *Runtime) Context() *ExecutionContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// AddTool attaches a tool, visible to the next execution. An existing tool
// with the same name is replaced.
func (r *Runtime) AddTool(t tool.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// RemoveTool detaches a tool by name, reporting whether it was attached.
func (r *Runtime) RemoveTool(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tools[name]
	delete(r.tools, name)
	return ok
}

// HasTool reports whether a tool is attached.
func (r *Runtime) HasTool(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tools[name]
	return ok
}

// UpdateConfig applies fn to a copy of the config, installs the result,
// bumps UpdatedAt and emits config:update. The change is visible to the next
// execution.
func (r *Runtime) UpdateConfig(fn func(c *Config)) {
	r.mu.Lock()
	cfg := r.config
	fn(&cfg)
	cfg.UpdatedAt = time.Now().UTC()
	r.config = cfg
	id := cfg.ID
	r.mu.Unlock()

	ev := core.NewEvent(core.EventConfigUpdate)
	ev.AgentID = id
	r.emitter.Emit(ev)
}

// Destroy permanently retires the runtime. Subsequent Execute calls fail
// with ErrDestroyed.
func (r *Runtime) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = true
	r.current = nil
}

// Stop transitions a live context straight to completed. It is best-effort
// and cooperative: an in-flight provider or tool call is not interrupted,
// but the runtime observes the state change when that call returns.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	current := r.current
	r.mu.Unlock()

	if current == nil {
		return nil
	}
	if err := current.transition(StateCompleted); err != nil {
		return err
	}

	r.logger.Debug("runtime.stop", "agent", r.ID(), "context", current.ID)
	return nil
}

// Pause marks the live context paused. Purely a cooperative marker: the
// in-flight provider call is not suspended.
func (r *Runtime) Pause() error {
	r.mu.Lock()
	current := r.current
	r.mu.Unlock()

	if current == nil {
		return fmt.Errorf("no live execution context to pause")
	}
	if err := current.transition(StatePaused); err != nil {
		return err
	}

	ev := core.NewEvent(core.EventExecutionPause)
	ev.AgentID = r.ID()
	r.emitter.Emit(ev)

	return nil
}

// Resume returns a paused context to running.
func (r *Runtime) Resume() error {
	r.mu.Lock()
	current := r.current
	r.mu.Unlock()

	if current == nil {
		return fmt.Errorf("no live execution context to resume")
	}
	if err := current.transition(StateRunning); err != nil {
		return err
	}

	ev := core.NewEvent(core.EventExecutionResume)
	ev.AgentID = r.ID()
	r.emitter.Emit(ev)

	return nil
}

// Execute implements core.Agent. It creates a fresh execution context,
// consults the model backend and runs any requested tool calls strictly in
// request order, then finalizes the context and the rolling status metrics.
//
// Ordinary failures are captured in the returned ExecutionResult with
// Success=false; the Go error is non-nil only for caller contract
// violations (destroyed runtime, concurrent invocation).
func (r *Runtime) Execute(ctx context.Context, input string, vars map[string]any) (*core.ExecutionResult, error) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return nil, ErrDestroyed
	}
	if r.current != nil {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	execCtx := newExecutionContext(r.config.ID, vars)
	r.current = execCtx
	cfg := r.config
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
	}()

	if cfg.Limits.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Limits.MaxExecutionTime)
		defer cancel()
	}

	if err := execCtx.transition(StateRunning); err != nil {
		return nil, err
	}

	started := time.Now()
	r.emitEvent(core.EventExecutionStart, execCtx, nil)
	r.logger.Debug("runtime.execute.start", "agent", cfg.ID, "context", execCtx.ID)

	resp, reasoningErr := r.reason(ctx, cfg, execCtx, input)
	if reasoningErr != nil {
		return r.finalizeError(execCtx, started, reasoningErr), nil
	}

	toolsUsed, toolErr := r.runToolCalls(ctx, cfg, execCtx, resp.ToolCalls)
	if toolErr != nil {
		return r.finalizeError(execCtx, started, toolErr), nil
	}

	return r.finalizeSuccess(execCtx, started, resp.Text, toolsUsed), nil
}

// reason appends the reasoning step and performs the provider chat call.
func (r *Runtime) reason(ctx context.Context, cfg Config, execCtx *ExecutionContext, input string) (*model.Response, *core.Error) {
	step := newStep(StepReasoning, input)
	stepStart := time.Now()

	req := model.Request{
		Messages: []model.Message{
			model.SystemMessage(r.buildSystemPrompt(cfg)),
			model.UserMessage(input),
		},
		Params: cfg.Provider,
	}
	if defs := r.toolDefinitions(cfg); len(defs) > 0 {
		req.Tools = defs
	}

	resp, err := r.llm.Chat(ctx, req)
	step.Duration = time.Since(stepStart)
	if sl, ok := r.logger.(*logging.StructuredLogger); ok {
		tokens := 0
		if resp != nil && resp.Usage != nil {
			tokens = resp.Usage.TotalTokens
		}
		sl.LogModelCall(r.llm.Info().Name, tokens, step.Duration, err == nil, err)
	}
	if err != nil {
		code := core.ErrCodeExecution
		if errors.Is(err, context.DeadlineExceeded) {
			code = core.ErrCodeTimeout
		}
		wrapped := core.WrapError(code, err, "model call failed: %v", err)
		step.Err = wrapped
		execCtx.appendStep(step)
		return nil, wrapped
	}

	step.Output = resp.Text
	execCtx.appendStep(step)
	r.emitEvent(core.EventExecutionStep, execCtx, map[string]any{"step_type": string(StepReasoning)})

	return resp, nil
}

// runToolCalls executes requested tool calls synchronously, in request
// order. There is no intra-agent concurrency. The first failing call aborts
// the remainder.
func (r *Runtime) runToolCalls(ctx context.Context, cfg Config, execCtx *ExecutionContext, calls []model.ToolCall) ([]string, *core.Error) {
	var toolsUsed []string
	for _, call := range calls {
		r.mu.Lock()
		t, ok := r.tools[call.Name]
		r.mu.Unlock()

		step := newStep(StepToolCall, string(call.Arguments))
		if !ok {
			notFound := core.NewError(core.ErrCodeToolNotFound, "tool %q is not attached to agent %s", call.Name, cfg.ID)
			step.Err = notFound
			execCtx.appendStep(step)
			r.emitEvent(core.EventToolError, execCtx, map[string]any{"tool": call.Name, "error": notFound.Error()})
			return toolsUsed, notFound
		}

		ev := core.NewEvent(core.EventToolCall)
		ev.AgentID = cfg.ID
		ev.Payload = map[string]any{"tool": call.Name, "call_id": call.ID}
		r.emitter.Emit(ev)

		stepStart := time.Now()
		output, err := r.executeTool(ctx, cfg, execCtx, t, call)
		step.Duration = time.Since(stepStart)
		if sl, ok := r.logger.(*logging.StructuredLogger); ok {
			sl.LogToolCall(call.Name, step.Duration, err == nil, err)
		}

		if err != nil {
			wrapped := asToolError(call.Name, err)
			step.Err = wrapped
			execCtx.appendStep(step)
			r.emitEvent(core.EventToolError, execCtx, map[string]any{"tool": call.Name, "error": wrapped.Error()})
			return toolsUsed, wrapped
		}

		step.Output = stringifyToolOutput(output)
		execCtx.appendStep(step)
		toolsUsed = append(toolsUsed, call.Name)
		r.emitEvent(core.EventToolResult, execCtx, map[string]any{"tool": call.Name})
	}

	return toolsUsed, nil
}

// executeTool decodes arguments and invokes a single tool.
func (r *Runtime) executeTool(ctx context.Context, cfg Config, execCtx *ExecutionContext, t tool.Tool, call model.ToolCall) (any, error) {
	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
		}
	}

	toolCtx := tool.NewContext(ctx, cfg.ID, call.ID, execCtx.variablesRef(), r.logger)
	return t.Execute(toolCtx, args)
}

// finalizeSuccess completes the context and folds the outcome into status.
func (r *Runtime) finalizeSuccess(execCtx *ExecutionContext, started time.Time, output string, toolsUsed []string) *core.ExecutionResult {
	// Stop() may have completed the context already; that is not an error.
	if st := execCtx.State(); st == StateRunning || st == StatePaused {
		if err := execCtx.transition(StateCompleted); err != nil {
			r.logger.Warn("runtime.finalize.transition", "agent", execCtx.AgentID, "error", err.Error())
		}
	}

	elapsed := time.Since(started)
	r.mu.Lock()
	r.status.record(true, elapsed)
	r.mu.Unlock()

	r.emitEvent(core.EventExecutionComplete, execCtx, map[string]any{"duration_ms": elapsed.Milliseconds()})
	r.logger.Debug("runtime.execute.complete", "agent", execCtx.AgentID, "context", execCtx.ID, "steps", execCtx.StepCount())

	return &core.ExecutionResult{
		Success: true,
		Output:  output,
		Metadata: core.ResultMetadata{
			ExecutionTime: elapsed,
			StepCount:     execCtx.StepCount(),
			ToolsUsed:     toolsUsed,
		},
	}
}

// finalizeError finalizes the context as errored and returns the failed result.
func (r *Runtime) finalizeError(execCtx *ExecutionContext, started time.Time, cause *core.Error) *core.ExecutionResult {
	execCtx.setErr(cause)
	if st := execCtx.State(); st == StateRunning || st == StatePaused {
		if err := execCtx.transition(StateError); err != nil {
			r.logger.Warn("runtime.finalize.transition", "agent", execCtx.AgentID, "error", err.Error())
		}
	}

	elapsed := time.Since(started)
	r.mu.Lock()
	r.status.record(false, elapsed)
	r.mu.Unlock()

	r.emitEvent(core.EventExecutionError, execCtx, map[string]any{"error": cause.Error()})
	r.logger.Warn("runtime.execute.error", "agent", execCtx.AgentID, "context", execCtx.ID, "error", cause.Error())

	return &core.ExecutionResult{
		Success: false,
		Err:     cause,
		Metadata: core.ResultMetadata{
			ExecutionTime: elapsed,
			StepCount:     execCtx.StepCount(),
		},
	}
}

// buildSystemPrompt assembles the system prompt: base prompt, role line, and
// a manifest of attached tools when tool usage is enabled.
func (r *Runtime) buildSystemPrompt(cfg Config) string {
	var b strings.Builder
	if cfg.SystemPrompt != "" {
		b.WriteString(cfg.SystemPrompt)
	} else {
		fmt.Fprintf(&b, "You are %s, a helpful AI assistant.", cfg.Name)
	}
	if cfg.Role != "" {
		fmt.Fprintf(&b, "\nYour role: %s.", cfg.Role)
	}

	if cfg.Capabilities.CanUseTool {
		names := r.toolNames()
		if len(names) > 0 {
			b.WriteString("\nYou have access to the following tools:")
			r.mu.Lock()
			for _, name := range names {
				fmt.Fprintf(&b, "\n- %s: %s", name, r.tools[name].Description())
			}
			r.mu.Unlock()
		}
	}

	return b.String()
}

// toolDefinitions builds provider tool descriptors in deterministic order.
// Returns nil when the agent cannot use tools or none are attached.
func (r *Runtime) toolDefinitions(cfg Config) []model.ToolDefinition {
	if !cfg.Capabilities.CanUseTool {
		return nil
	}
	names := r.toolNames()
	if len(names) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema().JSONSchema(),
		})
	}
	return defs
}

// toolNames returns attached tool names sorted for deterministic manifests.
func (r *Runtime) toolNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// emitEvent emits an execution-scoped event with agent and context ids attached.
func (r *Runtime) emitEvent(t core.EventType, execCtx *ExecutionContext, payload map[string]any) {
	ev := core.NewEvent(t)
	ev.AgentID = execCtx.AgentID
	if payload != nil {
		payload["context_id"] = execCtx.ID
		ev.Payload = payload
	} else {
		ev.Payload = map[string]any{"context_id": execCtx.ID}
	}
	r.emitter.Emit(ev)
}

// asToolError normalizes a tool failure: typed errors keep their code
// (validation failures stay VALIDATION_ERROR), anything else is wrapped as
// TOOL_EXECUTION_ERROR.
func asToolError(toolName string, err error) *core.Error {
	var typed *core.Error
	if errors.As(err, &typed) {
		return typed
	}
	return core.WrapError(core.ErrCodeToolExecution, err, "tool %q failed: %v", toolName, err)
}

// stringifyToolOutput renders a tool result for the step record.
func stringifyToolOutput(output any) string {
	switch v := output.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		if raw, err := json.Marshal(v); err == nil {
			return string(raw)
		}
		return fmt.Sprintf("%v", v)
	}
}
