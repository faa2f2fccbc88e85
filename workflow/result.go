package workflow

import (
	"time"

	"github.com/agentweave/agentweave/core"
)

// Output collects the per-step outputs and terminal step sets of a run.
type Output struct {
	// Steps maps step id to the output text of every completed step.
	Steps map[string]string `json:"steps"`
	// Completed, Failed and Skipped hold step ids in sorted order.
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
	Skipped   []string `json:"skipped"`
}

// Metadata carries aggregate execution figures for a run.
type Metadata struct {
	// ExecutionTime is wall-clock time from ExecuteWorkflow entry to return.
	ExecutionTime time.Duration `json:"execution_time"`
	// StepsExecuted counts steps that completed successfully.
	StepsExecuted int `json:"steps_executed"`
	// StepsFailed counts steps whose final attempt failed.
	StepsFailed int `json:"steps_failed"`
	// Retries counts re-attempts across all steps.
	Retries int `json:"retries"`
}

// Result is the outcome of one ExecuteWorkflow call.
type Result struct {
	Success  bool        `json:"success"`
	Output   Output      `json:"output"`
	Err      *core.Error `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// buildResult assembles the public result from the finished context.
func buildResult(ec *ExecutionContext, elapsed time.Duration) *Result {
	executed, failed, retries, _ := ec.counters()

	out := Output{
		Steps:     map[string]string{},
		Completed: ec.CompletedSteps(),
		Failed:    ec.FailedSteps(),
		Skipped:   ec.SkippedSteps(),
	}
	for _, id := range out.Completed {
		if r, ok := ec.Result(id); ok {
			out.Steps[id] = r.Output
		}
	}

	return &Result{
		Success: ec.State() == StateCompleted,
		Output:  out,
		Err:     ec.Err(),
		Metadata: Metadata{
			ExecutionTime: elapsed,
			StepsExecuted: executed,
			StepsFailed:   failed,
			Retries:       retries,
		},
	}
}
