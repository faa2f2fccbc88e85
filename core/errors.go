package core

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures surfaced by runtimes, tools and the
// workflow scheduler. Codes are stable strings so callers can branch on them
// without depending on message text.
type ErrorCode string

const (
	// ErrCodeExecution indicates a provider / reasoning failure inside an agent.
	ErrCodeExecution ErrorCode = "EXECUTION_ERROR"
	// ErrCodeToolExecution indicates a tool threw or rejected during execution.
	ErrCodeToolExecution ErrorCode = "TOOL_EXECUTION_ERROR"
	// ErrCodeToolNotFound indicates a requested tool is not attached to the agent.
	ErrCodeToolNotFound ErrorCode = "TOOL_NOT_FOUND"
	// ErrCodeAgentNotFound indicates a workflow step names an unregistered agent.
	ErrCodeAgentNotFound ErrorCode = "AGENT_NOT_FOUND"
	// ErrCodeWorkflowExecution wraps any uncaught failure at workflow granularity.
	ErrCodeWorkflowExecution ErrorCode = "WORKFLOW_EXECUTION_ERROR"
	// ErrCodeTimeout indicates a step or workflow deadline was exceeded.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeValidation indicates tool arguments failed schema validation.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
)

// Error is the typed error used throughout AgentWeave. StepID is populated
// for failures attributable to a single workflow step so the offending step
// is recoverable from the error payload.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	StepID  string    `json:"step_id,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("%s [step %s]: %s", e.Code, e.StepID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a typed error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a typed error preserving cause for unwrapping. A nil
// cause yields a plain typed error.
func WrapError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithStep returns a shallow copy of the error annotated with a step id.
func (e *Error) WithStep(stepID string) *Error {
	c := *e
	c.StepID = stepID
	return &c
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) an *Error.
// It returns an empty code for nil or untyped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }
