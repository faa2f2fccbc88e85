package core

import "time"

// ResultMetadata carries measured facts about a completed agent invocation.
type ResultMetadata struct {
	ExecutionTime time.Duration `json:"execution_time"`
	StepCount     int           `json:"step_count"`
	ToolsUsed     []string      `json:"tools_used,omitempty"`
}

// ExecutionResult is the terminal outcome of one agent invocation. Ordinary
// failures (provider errors, tool errors, timeouts) are captured here with
// Success=false rather than surfaced as Go errors; see Agent.Execute.
type ExecutionResult struct {
	Success  bool           `json:"success"`
	Output   string         `json:"output,omitempty"`
	Err      *Error         `json:"error,omitempty"`
	Metadata ResultMetadata `json:"metadata"`
}
