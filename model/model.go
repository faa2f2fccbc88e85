package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Message is a single chat message in provider-neutral form.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant", "tool"
	Content string `json:"content"`
	// ToolCallID correlates a tool-result message with the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// SystemMessage constructs a system-role message.
func SystemMessage(content string) Message { return Message{Role: "system", Content: content} }

// UserMessage constructs a user-role message.
func UserMessage(content string) Message { return Message{Role: "user", Content: content} }

// AssistantMessage constructs an assistant-role message.
func AssistantMessage(content string) Message { return Message{Role: "assistant", Content: content} }

// ToolCall is a function call request surfaced by a model provider, unified
// across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON object of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Params are the provider-level generation parameters bound to an agent.
type Params struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int64   `json:"max_tokens"`
}

// Request captures the normalized model input produced by an agent runtime.
type Request struct {
	Messages []Message        `json:"messages"`
	Params   Params           `json:"params"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the provider's answer: assistant text plus any tool-call
// requests, in the order the provider produced them.
type Response struct {
	Text      string      `json:"text"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	Usage     *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agent runtimes to drive
// generation. Chat must be safe to call concurrently.
type Model interface {
	Chat(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses are keyed by the last user message; unknown inputs echo a
// deterministic fallback. Canned tool calls and artificial latency can be
// attached per input to exercise tool loops and timeout paths.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	toolCalls map[string][]ToolCall
	latency   time.Duration
	err       error
	calls     int
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		responses: make(map[string]string),
		toolCalls: make(map[string][]ToolCall),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// AddToolCalls registers canned tool-call requests returned for an input prompt.
func (m *MockModel) AddToolCalls(prompt string, calls ...ToolCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls[prompt] = calls
}

// SetLatency makes every Chat call sleep for d before responding, honoring
// context cancellation.
func (m *MockModel) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// SetError makes every Chat call fail with err.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many Chat invocations the mock has served.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Chat implements Model.
func (m *MockModel) Chat(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls++
	latency, err := m.latency, m.err
	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			input = req.Messages[i].Content
			break
		}
	}
	text, calls := m.responses[input], m.toolCalls[input]
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(latency):
		}
	}
	if err != nil {
		return nil, err
	}
	if text == "" && len(calls) == 0 {
		text = fmt.Sprintf("Mock response to: %s", input)
	}

	return &Response{
		Text:      text,
		ToolCalls: calls,
		Usage:     &TokenUsage{PromptTokens: len(input), CompletionTokens: len(text), TotalTokens: len(input) + len(text)},
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
