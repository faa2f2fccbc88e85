// Package core provides the foundational domain types and leaf components
// shared across AgentWeave. It defines:
//
//   - The Agent interface consumed by the registry, the message bus and the
//     workflow scheduler
//   - ExecutionResult, the terminal outcome of a single agent invocation
//   - Events and the Emitter observer list used for lifecycle notifications
//   - The typed Error taxonomy (execution, tool, lookup, workflow, timeout)
//   - Limiter, a FIFO counting semaphore bounding concurrent step execution
//   - Registry, the by-id lookup table for agent instances
//   - AgentMessage, the unit of inter-agent communication
//
// The package intentionally keeps implementation concerns (model providers,
// concrete runtimes, scheduling) out of scope, exposing small interfaces so
// higher layers depend on contracts rather than concrete types.
package core
