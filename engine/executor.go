package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/skillsenselab/expflow/logger"
)

// Executor runs tasks without exceeding a fixed concurrency limit.
// A counting semaphore gates how many Execute calls are in flight;
// a limit of 1 forces strict sequential execution.
type Executor struct {
	maxConcurrent int
	sem           chan struct{}
	log           *logger.Logger

	mu       sync.Mutex
	progress chan TaskProgress
}

// NewExecutor creates an executor with the given concurrency limit.
// Limits below 1 are clamped to 1.
func NewExecutor(maxConcurrent int) *Executor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Executor{
		maxConcurrent: maxConcurrent,
		sem:           make(chan struct{}, maxConcurrent),
		log:           logger.WithComponent("executor"),
	}
}

// MaxConcurrent returns the executor's concurrency limit.
func (e *Executor) MaxConcurrent() int { return e.maxConcurrent }

// EnableProgress enables best-effort progress events and returns the stream.
// Events are emitted at task start and completion. Emission never blocks:
// when the buffer is full the event is dropped.
func (e *Executor) EnableProgress(buffer int) <-chan TaskProgress {
	if buffer <= 0 {
		buffer = 64
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.progress == nil {
		e.progress = make(chan TaskProgress, buffer)
	}
	return e.progress
}

// ExecuteOne runs a single task to completion under the concurrency limit.
// A panic inside the task is caught and converted into a failed TaskResult:
// one task's fault must not corrupt the executor.
func (e *Executor) ExecuteOne(ctx context.Context, task Task, tc TaskContext) TaskResult {
	return e.executeIdentified(ctx, task.Name(), task, tc)
}

// ExecuteBatch runs the given tasks as mutually independent work: no
// dependency checking happens at this layer. Up to the concurrency limit run
// at once, backfilling as slots free. The returned slice has one result per
// input task, in input order.
func (e *Executor) ExecuteBatch(ctx context.Context, tasks []Task, tc TaskContext) []TaskResult {
	results := make([]TaskResult, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			results[i] = e.executeIdentified(ctx, task.Name(), task, tc)
		}(i, task)
	}

	wg.Wait()
	return results
}

// executeIdentified acquires a concurrency slot and runs the task body with
// fault isolation and progress emission. id is the pipeline task id where
// known; callers outside a pipeline run pass the task name.
func (e *Executor) executeIdentified(ctx context.Context, id string, task Task, tc TaskContext) TaskResult {
	e.sem <- struct{}{}
	defer func() { <-e.sem }()
	return e.runTask(ctx, id, task, tc)
}

func (e *Executor) runTask(ctx context.Context, id string, task Task, tc TaskContext) (res TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("task panicked", map[string]interface{}{
				"task_id": id,
				"task":    task.Name(),
				"panic":   fmt.Sprintf("%v", r),
				"stack":   string(debug.Stack()),
			})
			res = TaskResult{Success: false, Error: fmt.Sprintf("panic: %v", r)}
		}
		e.emitDone(id, task, res)
	}()

	e.emit(TaskProgress{
		TaskID:   id,
		TaskName: task.Name(),
		Progress: 0,
		Status:   ProgressRunning,
	})

	res = task.Execute(ctx, tc)
	return res
}

func (e *Executor) emitDone(id string, task Task, res TaskResult) {
	p := TaskProgress{
		TaskID:   id,
		TaskName: task.Name(),
		Progress: 1,
		Status:   ProgressCompleted,
	}
	if !res.Success {
		p.Status = ProgressFailed
		p.Message = res.Error
	}
	e.emit(p)
}

// emit sends a progress event without ever blocking task execution.
func (e *Executor) emit(p TaskProgress) {
	e.mu.Lock()
	ch := e.progress
	e.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
		// Subscriber is slow or absent; drop the event.
	}
}
