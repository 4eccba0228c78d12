package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func funcTask(name string, fn func(ctx context.Context, tc TaskContext) TaskResult) Task {
	return TaskFunc{TaskName: name, Fn: fn}
}

func okTask(name string) Task {
	return funcTask(name, func(ctx context.Context, tc TaskContext) TaskResult {
		return TaskResult{Success: true, Output: name}
	})
}

func TestNewExecutor_ClampsLimit(t *testing.T) {
	if got := NewExecutor(0).MaxConcurrent(); got != 1 {
		t.Fatalf("expected limit clamped to 1, got %d", got)
	}
	if got := NewExecutor(-5).MaxConcurrent(); got != 1 {
		t.Fatalf("expected limit clamped to 1, got %d", got)
	}
	if got := NewExecutor(8).MaxConcurrent(); got != 8 {
		t.Fatalf("expected limit 8, got %d", got)
	}
}

func TestExecuteOne(t *testing.T) {
	e := NewExecutor(1)

	res := e.ExecuteOne(context.Background(), okTask("ok"), TaskContext{})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Output != "ok" {
		t.Fatalf("expected output preserved, got %v", res.Output)
	}

	res = e.ExecuteOne(context.Background(), funcTask("bad", func(ctx context.Context, tc TaskContext) TaskResult {
		return TaskResult{Success: false, Error: "boom"}
	}), TaskContext{})
	if res.Success || res.Error != "boom" {
		t.Fatalf("expected failure with error preserved, got %+v", res)
	}
}

func TestExecuteOne_PassesTaskContext(t *testing.T) {
	e := NewExecutor(1)
	tc := TaskContext{
		ExperimentID: "exp-42",
		Config:       map[string]any{"rate": 0.5},
	}

	res := e.ExecuteOne(context.Background(), funcTask("probe", func(ctx context.Context, got TaskContext) TaskResult {
		if got.ExperimentID != "exp-42" {
			return TaskResult{Success: false, Error: "missing experiment id"}
		}
		if got.Config["rate"] != 0.5 {
			return TaskResult{Success: false, Error: "missing config"}
		}
		return TaskResult{Success: true}
	}), tc)
	if !res.Success {
		t.Fatalf("task context not delivered: %+v", res)
	}
}

func TestExecuteOne_PanicIsolation(t *testing.T) {
	e := NewExecutor(2)

	res := e.ExecuteOne(context.Background(), funcTask("panics", func(ctx context.Context, tc TaskContext) TaskResult {
		panic("kaboom")
	}), TaskContext{})
	if res.Success {
		t.Fatal("panicking task must yield a failed result")
	}
	if res.Error != "panic: kaboom" {
		t.Fatalf("unexpected error message: %q", res.Error)
	}

	// The executor stays usable: the slot was released.
	if res := e.ExecuteOne(context.Background(), okTask("after"), TaskContext{}); !res.Success {
		t.Fatalf("executor unusable after panic: %+v", res)
	}
}

func TestExecuteBatch_ResultOrder(t *testing.T) {
	e := NewExecutor(4)

	tasks := make([]Task, 5)
	for i := range tasks {
		name := fmt.Sprintf("t%d", i)
		tasks[i] = okTask(name)
	}

	results := e.ExecuteBatch(context.Background(), tasks, TaskContext{})
	if len(results) != len(tasks) {
		t.Fatalf("expected %d results, got %d", len(tasks), len(results))
	}
	for i, res := range results {
		want := fmt.Sprintf("t%d", i)
		if res.Output != want {
			t.Fatalf("result %d out of order: want %q, got %v", i, want, res.Output)
		}
	}
}

func TestExecuteBatch_ConcurrencyBound(t *testing.T) {
	const limit = 2
	e := NewExecutor(limit)

	var active, peak int64
	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = funcTask(fmt.Sprintf("t%d", i), func(ctx context.Context, tc TaskContext) TaskResult {
			n := atomic.AddInt64(&active, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return TaskResult{Success: true}
		})
	}

	e.ExecuteBatch(context.Background(), tasks, TaskContext{})

	if got := atomic.LoadInt64(&peak); got > limit {
		t.Fatalf("concurrency limit violated: observed %d simultaneous tasks, limit %d", got, limit)
	}
}

func TestExecuteBatch_SequentialWhenLimitOne(t *testing.T) {
	e := NewExecutor(1)

	var active, violations int64
	tasks := make([]Task, 4)
	for i := range tasks {
		tasks[i] = funcTask(fmt.Sprintf("t%d", i), func(ctx context.Context, tc TaskContext) TaskResult {
			if atomic.AddInt64(&active, 1) > 1 {
				atomic.AddInt64(&violations, 1)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return TaskResult{Success: true}
		})
	}

	e.ExecuteBatch(context.Background(), tasks, TaskContext{})

	if violations != 0 {
		t.Fatalf("limit 1 must serialize execution, saw %d overlaps", violations)
	}
}

func TestProgressEvents(t *testing.T) {
	e := NewExecutor(1)
	progress := e.EnableProgress(16)

	e.ExecuteOne(context.Background(), okTask("good"), TaskContext{})
	e.ExecuteOne(context.Background(), funcTask("bad", func(ctx context.Context, tc TaskContext) TaskResult {
		return TaskResult{Success: false, Error: "broken"}
	}), TaskContext{})

	collect := func() TaskProgress {
		select {
		case p := <-progress:
			return p
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for progress event")
			return TaskProgress{}
		}
	}

	p := collect()
	if p.Status != ProgressRunning || p.TaskName != "good" {
		t.Fatalf("expected running event for good, got %+v", p)
	}
	p = collect()
	if p.Status != ProgressCompleted || p.Progress != 1 {
		t.Fatalf("expected completed event, got %+v", p)
	}
	p = collect()
	if p.Status != ProgressRunning || p.TaskName != "bad" {
		t.Fatalf("expected running event for bad, got %+v", p)
	}
	p = collect()
	if p.Status != ProgressFailed || p.Message != "broken" {
		t.Fatalf("expected failed event with message, got %+v", p)
	}
}

func TestProgressEvents_DroppedWhenFull(t *testing.T) {
	e := NewExecutor(1)
	e.EnableProgress(1) // nobody reads, buffer fills after one event

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			e.ExecuteOne(context.Background(), okTask(fmt.Sprintf("t%d", i)), TaskContext{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("execution blocked on a full progress buffer")
	}
}

func TestProgressEvents_PanicEmitsFailed(t *testing.T) {
	e := NewExecutor(1)
	progress := e.EnableProgress(4)

	e.ExecuteOne(context.Background(), funcTask("p", func(ctx context.Context, tc TaskContext) TaskResult {
		panic("oops")
	}), TaskContext{})

	<-progress // running
	p := <-progress
	if p.Status != ProgressFailed {
		t.Fatalf("expected failed event after panic, got %+v", p)
	}
}
