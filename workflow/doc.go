// Package workflow coordinates many agents into multi-step workflows with
// dependency ordering, bounded concurrency, conditional execution and fault
// isolation.
//
// A Definition declares steps, dependency edges, an execution mode
// (sequential, parallel, mixed) and an error policy (fail_fast, continue,
// retry). The Scheduler builds one ExecutionContext per ExecuteWorkflow
// call, resolves step readiness from completed dependencies, binds `${name}`
// placeholders from the shared variable namespace, and drives agent
// invocations through a FIFO concurrency limiter. ExecuteWorkflow always
// resolves with a Result whose Success flag and Err field communicate the
// outcome; only caller contract violations (a malformed definition) return a
// Go error.
package workflow
