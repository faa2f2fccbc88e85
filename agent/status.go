package agent

import "time"

// Status holds agent-level rolling metrics, independent of any single
// execution context. It is mutated only by the owning Runtime after each
// execution completes; read it through Runtime.Status which returns a copy.
type Status struct {
	TotalExecutions      int           `json:"total_executions"`
	SuccessfulExecutions int           `json:"successful_executions"`
	FailedExecutions     int           `json:"failed_executions"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`
}

// record folds one completed execution into the rolling metrics using an
// incremental mean so no per-execution history is kept.
func (s *Status) record(success bool, elapsed time.Duration) {
	s.TotalExecutions++
	if success {
		s.SuccessfulExecutions++
	} else {
		s.FailedExecutions++
	}
	s.AverageExecutionTime += (elapsed - s.AverageExecutionTime) / time.Duration(s.TotalExecutions)
}
