package core

import "context"

// Agent is the execution contract consumed by the registry, the message bus
// and the workflow scheduler. The concrete implementation lives in the agent
// package; depending on this interface keeps orchestration decoupled from
// the runtime.
//
// Execute turns a natural-language input into an ExecutionResult. Ordinary
// failures (provider errors, tool errors) are reported inside the result
// with Success=false; the returned Go error is reserved for caller contract
// violations such as executing a destroyed runtime. Implementations must
// respect ctx cancellation cooperatively: an in-flight provider call is not
// forcibly interrupted.
//
// An agent instance holds at most one live execution context at a time.
// Callers that may run the same instance from concurrently-ready workflow
// steps must serialize those executions (the scheduler does this per agent
// id); the runtime itself does not guard against the race.
type Agent interface {
	// ID returns the stable unique identifier used for registry lookup and
	// workflow step targeting.
	ID() string

	// Name returns the human-readable name.
	Name() string

	// Execute runs one reason -> (optionally call tools) -> respond cycle.
	// vars seeds the invocation's variable namespace and may be nil.
	Execute(ctx context.Context, input string, vars map[string]any) (*ExecutionResult, error)

	// Stop transitions a running execution context to completed. It is
	// advisory: an in-flight provider or tool call is not interrupted.
	Stop() error
}
