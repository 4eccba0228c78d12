package engine

import "time"

// RunStatus is the overall outcome of a pipeline run.
type RunStatus string

const (
	// StatusCompleted means every task ran and succeeded.
	StatusCompleted RunStatus = "completed"
	// StatusCompletedWithFailures means every runnable task ran, at least one failed.
	StatusCompletedWithFailures RunStatus = "completed_with_failures"
	// StatusCycleDetected means the pipeline was rejected before any task ran.
	StatusCycleDetected RunStatus = "cycle_detected"
	// StatusDeadlock means the run stalled with unsatisfiable dependencies.
	StatusDeadlock RunStatus = "deadlock"
	// StatusCancelled means the run stopped submitting tasks after cancellation.
	StatusCancelled RunStatus = "cancelled"
)

// RunReport is the aggregated outcome of one pipeline run.
type RunReport struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`
	// PipelineID is the id of the executed pipeline.
	PipelineID string `json:"pipeline_id"`
	// Status is the overall run outcome.
	Status RunStatus `json:"status"`
	// Outputs holds one result per executed task, keyed by task id.
	Outputs map[string]TaskResult `json:"outputs"`
	// Skipped lists tasks never dispatched because a dependency failed.
	Skipped []string `json:"skipped,omitempty"`
	// Remaining lists tasks left unexecuted at deadlock or cancellation.
	Remaining []string `json:"remaining,omitempty"`
	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`
}
