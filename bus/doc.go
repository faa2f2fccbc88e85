// Package bus implements agent-to-agent messaging on top of the registry:
// validated point-to-point delivery and fan-out broadcasts, decoupled from
// workflow execution. Agents that want to consume inbound messages implement
// the Receiver interface; delivery to non-receivers still succeeds so that
// observers on the emitter can audit traffic between passive agents.
package bus
