package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillsenselab/expflow/logger"
	"github.com/skillsenselab/expflow/pipeline"
	"github.com/skillsenselab/expflow/util"
)

// Runner executes an entire pipeline to completion. The scheduling loop
// exclusively owns the mutable run state (completed, in-flight, outputs);
// workers report back over a completion channel, so no lock is ever held
// across a task execution.
type Runner struct {
	exec *Executor
	log  *logger.Logger
}

// NewRunner creates a runner on top of the given executor.
func NewRunner(exec *Executor) *Runner {
	return &Runner{
		exec: exec,
		log:  logger.WithComponent("runner"),
	}
}

type completion struct {
	id  string
	res TaskResult
}

// Run schedules and executes every task of the pipeline in dependency order.
//
// Structural failures are hard errors: a cycle aborts before any task runs,
// a stalled run (dangling dependency) aborts with the remaining task ids.
// Individual task failures are not: the failed result is recorded, tasks
// transitively depending on it are skipped, and everything else keeps
// running (partial-success model).
//
// Cancellation is cooperative: once ctx is done no new task is dispatched,
// in-flight tasks run to completion, and the report carries whatever
// outputs were collected.
func (r *Runner) Run(ctx context.Context, p *pipeline.Pipeline, tasks TaskSet, tc TaskContext) (*RunReport, error) {
	return r.RunWithID(ctx, uuid.New().String(), p, tasks, tc)
}

// RunWithID is Run with a caller-chosen run id, for callers that need to hand
// out the id before the run finishes.
func (r *Runner) RunWithID(ctx context.Context, runID string, p *pipeline.Pipeline, tasks TaskSet, tc TaskContext) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{
		RunID:      runID,
		PipelineID: p.ID,
		Outputs:    make(map[string]TaskResult),
	}

	dag, err := NewDAG(p)
	if err != nil {
		report.Status = StatusCycleDetected
		report.Duration = time.Since(start)
		r.log.Error("pipeline rejected", logger.ErrorFields("run", err))
		return report, err
	}

	total := dag.Len()
	r.log.Info("run started", map[string]interface{}{
		logger.FieldRunID:      report.RunID,
		logger.FieldPipelineID: p.ID,
		"tasks":                total,
		"max_concurrent":       r.exec.MaxConcurrent(),
	})

	completed := make(map[string]bool) // successful, failed and skipped ids
	failed := make(map[string]bool)
	skipped := make(map[string]bool)
	inFlight := make(map[string]bool)
	done := make(chan completion)
	cancelled := false

	for len(report.Outputs)+len(skipped) < total {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}

		// Partition the ready set: tasks with a failed or skipped dependency
		// are never dispatched, they are skipped (and the skip propagates to
		// their own dependents on the next iteration).
		progressed := false
		var dispatchable []string
		for _, id := range dag.ReadyTasks(completed) {
			if inFlight[id] {
				continue
			}
			if r.tainted(dag, id, failed, skipped) {
				skipped[id] = true
				completed[id] = true
				progressed = true
				continue
			}
			dispatchable = append(dispatchable, id)
		}
		if progressed {
			continue
		}

		if !cancelled {
			for _, id := range dispatchable {
				if len(inFlight) >= r.exec.MaxConcurrent() {
					break
				}
				task, ok := tasks[id]
				if !ok {
					node, _ := dag.Node(id)
					res := TaskResult{
						Success: false,
						Error:   fmt.Sprintf("no task implementation for type %q", node.Type),
					}
					report.Outputs[id] = res
					completed[id] = true
					failed[id] = true
					progressed = true
					continue
				}
				inFlight[id] = true
				go func(id string, task Task) {
					done <- completion{id: id, res: r.exec.executeIdentified(ctx, id, task, tc)}
				}(id, task)
			}
			if progressed {
				continue
			}
		}

		if len(inFlight) == 0 {
			if cancelled {
				return r.finishCancelled(report, dag, completed, skipped, start)
			}
			remaining := r.remaining(dag, completed)
			report.Status = StatusDeadlock
			report.Remaining = remaining
			report.Skipped = util.SortedKeys(skipped)
			report.Duration = time.Since(start)
			err := &DeadlockError{Remaining: remaining}
			r.log.Error("run deadlocked", map[string]interface{}{
				logger.FieldRunID: report.RunID,
				"remaining":       remaining,
			})
			return report, err
		}

		if cancelled {
			c := <-done
			r.record(report, c, inFlight, completed, failed)
			continue
		}

		select {
		case c := <-done:
			r.record(report, c, inFlight, completed, failed)
		case <-ctx.Done():
			cancelled = true
		}
	}

	if cancelled {
		return r.finishCancelled(report, dag, completed, skipped, start)
	}

	report.Skipped = util.SortedKeys(skipped)
	report.Duration = time.Since(start)
	if len(failed) == 0 && len(skipped) == 0 {
		report.Status = StatusCompleted
	} else {
		report.Status = StatusCompletedWithFailures
	}

	r.log.Info("run finished", map[string]interface{}{
		logger.FieldRunID:  report.RunID,
		logger.FieldStatus: string(report.Status),
		"executed":         len(report.Outputs),
		"skipped":          len(report.Skipped),
		"duration":         report.Duration.String(),
	})
	return report, nil
}

// RunStage executes one stage's tasks as a convenience batch, honoring the
// stage's parallel hint: parallel stages go through ExecuteBatch, serial
// stages run one task at a time in declaration order. Dependencies are not
// consulted here; use Run for dependency-respecting execution.
func (r *Runner) RunStage(ctx context.Context, stage pipeline.Stage, tasks TaskSet, tc TaskContext) ([]TaskResult, error) {
	impls := make([]Task, 0, len(stage.Tasks))
	for _, t := range stage.Tasks {
		impl, ok := tasks[t.ID]
		if !ok {
			return nil, fmt.Errorf("engine: no task implementation for %q (type %q)", t.ID, t.Type)
		}
		impls = append(impls, impl)
	}

	if stage.Parallel {
		return r.exec.ExecuteBatch(ctx, impls, tc), nil
	}

	results := make([]TaskResult, 0, len(impls))
	for i, impl := range impls {
		results = append(results, r.exec.executeIdentified(ctx, stage.Tasks[i].ID, impl, tc))
	}
	return results, nil
}

// tainted reports whether any declared dependency of id failed or was skipped.
func (r *Runner) tainted(dag *DAG, id string, failed, skipped map[string]bool) bool {
	for _, dep := range dag.Dependencies(id) {
		if failed[dep] || skipped[dep] {
			return true
		}
	}
	return false
}

func (r *Runner) record(report *RunReport, c completion, inFlight, completed, failed map[string]bool) {
	delete(inFlight, c.id)
	completed[c.id] = true
	report.Outputs[c.id] = c.res
	if !c.res.Success {
		failed[c.id] = true
	}
	r.log.Debug("task finished", map[string]interface{}{
		logger.FieldRunID:  report.RunID,
		logger.FieldTaskID: c.id,
		"success":          c.res.Success,
	})
}

func (r *Runner) finishCancelled(report *RunReport, dag *DAG, completed, skipped map[string]bool, start time.Time) (*RunReport, error) {
	report.Status = StatusCancelled
	report.Remaining = r.remaining(dag, completed)
	report.Skipped = util.SortedKeys(skipped)
	report.Duration = time.Since(start)
	r.log.Warn("run cancelled", map[string]interface{}{
		logger.FieldRunID: report.RunID,
		"executed":        len(report.Outputs),
		"remaining":       len(report.Remaining),
	})
	return report, nil
}

// remaining lists node ids that never produced a result and were not skipped.
func (r *Runner) remaining(dag *DAG, completed map[string]bool) []string {
	var ids []string
	for _, id := range dag.NodeIDs() {
		if !completed[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
