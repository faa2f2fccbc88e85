// Package agent implements the agent runtime: a stateful unit that turns a
// natural-language input into an output by consulting a language-model
// backend and optionally invoking callable tools.
//
// A Runtime executes one reason -> (optionally call tools) -> respond cycle
// per invocation, recording every step into an append-only ExecutionContext
// and updating rolling Status metrics when the invocation completes.
// Ordinary failures (provider errors, tool errors) never escape as Go
// errors; they are captured in the ExecutionResult with Success=false.
package agent
