// Package tool implements the function / tool calling subsystem that lets
// agents invoke structured capabilities (APIs, computations, side effects)
// with schema validated arguments and consistent error handling.
package tool

import (
	"context"

	"github.com/agentweave/agentweave/logging"
)

// Tool is a named capability an agent may invoke mid-execution.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names recommended)
//   - Declare a parameter Schema so arguments are validated before execution
//   - Handle errors gracefully
//   - Be safe for concurrent use; a tool may back several agents at once
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it decide when to use the tool.
	Description() string

	// Schema describes the accepted arguments. It is used for validation and
	// converted to JSON Schema for provider tool descriptors.
	Schema() Schema

	// Execute runs the tool with validated arguments. It may return an error;
	// the agent runtime wraps failures as TOOL_EXECUTION_ERROR.
	Execute(toolCtx *Context, args map[string]any) (any, error)
}

// Context is the constrained execution surface handed to tool
// implementations. It exposes the ambient cancellation context, the invoking
// agent's identity and variable namespace, and a logger.
type Context struct {
	ctx     context.Context
	agentID string
	callID  string
	vars    map[string]any
	logger  logging.Logger
}

// NewContext constructs a tool context for one function call. vars is the
// live variable namespace of the invoking execution; mutations made through
// SetVariable are visible to subsequent steps of the same invocation.
func NewContext(ctx context.Context, agentID, callID string, vars map[string]any, logger logging.Logger) *Context {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Context{ctx: ctx, agentID: agentID, callID: callID, vars: vars, logger: logging.OrNoOp(logger)}
}

// Context returns the ambient cancellation context for the invocation.
func (c *Context) Context() context.Context { return c.ctx }

// AgentID returns the id of the invoking agent.
func (c *Context) AgentID() string { return c.agentID }

// CallID returns the function call identifier correlating the model request
// with this execution.
func (c *Context) CallID() string { return c.callID }

// Logger returns the logger bound to the invocation.
func (c *Context) Logger() logging.Logger { return c.logger }

// Variable returns the value and existence flag for a variable key.
func (c *Context) Variable(key string) (any, bool) {
	v, ok := c.vars[key]
	return v, ok
}

// SetVariable writes a value into the invocation's variable namespace.
func (c *Context) SetVariable(key string, value any) { c.vars[key] = value }
