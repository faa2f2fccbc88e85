package tool

import (
	"strings"
	"time"

	"github.com/agentweave/agentweave/core"
)

// FunctionTool is a generic adapter that exposes a plain Go function as an
// AgentWeave tool.
//
// Responsibilities:
//   - Holds the tagged-variant parameter Schema
//   - Validates supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *Context giving access to the
//     invocation's variables, identifiers and logger
//   - Normalizes error handling so callers receive *core.Error with
//     consistent codes: VALIDATION_ERROR for schema mismatches,
//     TOOL_EXECUTION_ERROR when the wrapped function fails
//
// A FunctionTool has no internal mutable state after construction and is
// safe for concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	schema      Schema
	fn          func(toolCtx *Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  Schema{
//	    "a": {Kind: KindNumber, Required: true},
//	    "b": {Kind: KindNumber, Required: true},
//	  },
//	  func(tc *Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	schema Schema,
	fn func(toolCtx *Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Schema returns the tagged-variant parameter schema.
func (t *FunctionTool) Schema() Schema { return t.schema }

// Execute validates the provided args against the declared schema then
// invokes the underlying function. Validation failures are reported as
// *core.Error with code VALIDATION_ERROR listing every failed field; other
// failures pass through for the runtime to wrap.
func (t *FunctionTool) Execute(toolCtx *Context, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "call_id", toolCtx.CallID())

	sanitized, validationErrs := t.schema.Validate(args)
	if len(validationErrs) > 0 {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "errors", validationErrs)
		return nil, core.NewError(core.ErrCodeValidation,
			"parameter validation failed for %s: %s", t.name, strings.Join(validationErrs, "; "))
	}

	result, err := t.fn(toolCtx, sanitized)
	if err != nil {
		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())
		return nil, err
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
