package engine

import (
	"context"
)

// Task is the execution unit the engine orchestrates. Implementations are
// supplied entirely by the caller; the engine never enumerates concrete kinds.
//
// Execute reports failure by returning a TaskResult with Success false.
// Implementations are not assumed panic-safe: the executor isolates faults.
type Task interface {
	Name() string
	Execute(ctx context.Context, tc TaskContext) TaskResult
}

// TaskContext carries the run-scoped inputs handed to every task.
type TaskContext struct {
	// ExperimentID identifies the experiment this run belongs to.
	ExperimentID string
	// Config is an opaque payload shared by all tasks in the run.
	Config map[string]any
}

// TaskResult is the outcome of a single task execution. Exactly one result is
// produced per executed task.
type TaskResult struct {
	// Success reports whether the task completed without error.
	Success bool `json:"success"`
	// Output is the task's opaque output value.
	Output any `json:"output,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
}

// TaskProgress is an ephemeral, best-effort event describing a task's
// execution state. It is never persisted.
type TaskProgress struct {
	TaskID   string  `json:"task_id"`
	TaskName string  `json:"task_name"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
	Message  string  `json:"message,omitempty"`
}

// Progress status values emitted by the executor.
const (
	ProgressRunning   = "running"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context, tc TaskContext) TaskResult
}

func (t TaskFunc) Name() string { return t.TaskName }

func (t TaskFunc) Execute(ctx context.Context, tc TaskContext) TaskResult {
	return t.Fn(ctx, tc)
}

// TaskSet maps pipeline task ids to their executable implementations.
type TaskSet map[string]Task
