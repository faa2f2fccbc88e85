package agent

import (
	"time"

	"github.com/agentweave/agentweave/model"
)

// Capabilities are coarse feature flags gating what an agent is allowed to do.
type Capabilities struct {
	CanUseTool       bool `json:"can_use_tool"`
	CanCommunicate   bool `json:"can_communicate"`
	CanMakeDecisions bool `json:"can_make_decisions"`
	CanLearn         bool `json:"can_learn"`
}

// Limits bound the resources a single invocation may consume.
type Limits struct {
	// MaxExecutionTime caps one invocation end to end. Zero means no cap.
	MaxExecutionTime time.Duration `json:"max_execution_time"`
	// MaxConcurrentTools is reserved for future intra-agent tool
	// parallelism; tool calls currently execute strictly sequentially.
	MaxConcurrentTools int `json:"max_concurrent_tools"`
}

// Config is the declarative identity and behavior of an agent. It is
// immutable on the runtime except via Runtime.UpdateConfig, which also bumps
// UpdatedAt.
type Config struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Role         string       `json:"role"`
	SystemPrompt string       `json:"system_prompt"`
	Capabilities Capabilities `json:"capabilities"`
	Limits       Limits       `json:"limits"`
	Provider     model.Params `json:"provider"`
	Tools        []string     `json:"tools,omitempty"`
	Active       bool         `json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewConfig constructs an active config with timestamps set and tool usage
// enabled; override via the returned value before building a Runtime.
func NewConfig(id, name, role string) Config {
	now := time.Now().UTC()
	return Config{
		ID:   id,
		Name: name,
		Role: role,
		Capabilities: Capabilities{
			CanUseTool:     true,
			CanCommunicate: true,
		},
		Limits:    Limits{MaxConcurrentTools: 1},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
