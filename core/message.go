package core

import (
	"time"

	"github.com/agentweave/agentweave/internal/util"
)

// BroadcastRecipient is the reserved To value addressing every registered agent.
const BroadcastRecipient = "broadcast"

// MessageMetadata carries delivery attributes for an AgentMessage.
type MessageMetadata struct {
	Timestamp     time.Time  `json:"timestamp"`
	Priority      int        `json:"priority,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// AgentMessage is a point-to-point or broadcast message between registered
// agents, decoupled from workflow execution.
type AgentMessage struct {
	ID       string          `json:"id"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Type     string          `json:"type"`
	Content  string          `json:"content"`
	Metadata MessageMetadata `json:"metadata"`
}

// NewAgentMessage constructs a message with a fresh id and timestamp.
func NewAgentMessage(from, to, msgType, content string) AgentMessage {
	return AgentMessage{
		ID:       util.NewID(),
		From:     from,
		To:       to,
		Type:     msgType,
		Content:  content,
		Metadata: MessageMetadata{Timestamp: time.Now().UTC()},
	}
}

// IsBroadcast reports whether the message addresses every registered agent.
func (m AgentMessage) IsBroadcast() bool { return m.To == BroadcastRecipient }

// IsExpired reports whether the message's expiry, if set, has passed.
func (m AgentMessage) IsExpired(now time.Time) bool {
	return m.Metadata.ExpiresAt != nil && now.After(*m.Metadata.ExpiresAt)
}
