package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillsenselab/expflow/logger"
	"github.com/skillsenselab/expflow/observability"
	"github.com/skillsenselab/expflow/resilience"
)

// WithLogging wraps a Task with execution logging.
// Logs: task name, duration, and success/error status.
func WithLogging(task Task, log *logger.Logger) Task {
	return &loggingTask{inner: task, log: log}
}

type loggingTask struct {
	inner Task
	log   *logger.Logger
}

func (t *loggingTask) Name() string { return t.inner.Name() }

func (t *loggingTask) Execute(ctx context.Context, tc TaskContext) TaskResult {
	start := time.Now()
	res := t.inner.Execute(ctx, tc)
	duration := time.Since(start)

	fields := map[string]interface{}{
		"task":     t.inner.Name(),
		"duration": duration.String(),
	}
	if !res.Success {
		fields["error"] = res.Error
		t.log.Error("task failed", fields)
	} else {
		t.log.Debug("task completed", fields)
	}
	return res
}

// WithTracing wraps a Task with OpenTelemetry span creation.
// Each execution creates a span named "{prefix}.{taskName}".
func WithTracing(task Task, prefix string) Task {
	return &tracingTask{inner: task, prefix: prefix}
}

type tracingTask struct {
	inner  Task
	prefix string
}

func (t *tracingTask) Name() string { return t.inner.Name() }

func (t *tracingTask) Execute(ctx context.Context, tc TaskContext) TaskResult {
	ctx, span := observability.StartSpan(ctx, t.prefix+"."+t.inner.Name())
	defer span.End()

	observability.SetSpanAttribute(ctx, "task.name", t.inner.Name())
	observability.SetSpanAttribute(ctx, "experiment.id", tc.ExperimentID)

	res := t.inner.Execute(ctx, tc)
	if !res.Success {
		observability.SetSpanError(ctx, errors.New(res.Error))
	}
	return res
}

// WithMetrics wraps a Task with metric recording: active-task gauge,
// execution count, duration, and errors.
func WithMetrics(task Task, taskType string, metrics *observability.Metrics) Task {
	return &metricsTask{inner: task, taskType: taskType, metrics: metrics}
}

type metricsTask struct {
	inner    Task
	taskType string
	metrics  *observability.Metrics
}

func (t *metricsTask) Name() string { return t.inner.Name() }

func (t *metricsTask) Execute(ctx context.Context, tc TaskContext) TaskResult {
	start := time.Now()
	t.metrics.RecordTaskStart(ctx)

	res := t.inner.Execute(ctx, tc)

	status := "ok"
	if !res.Success {
		status = "error"
		t.metrics.RecordError(ctx, "execute", t.inner.Name())
	}
	t.metrics.RecordTaskEnd(ctx, t.taskType, status, time.Since(start))
	return res
}

// WithRetry wraps a Task so failed results are retried per the config.
// The final attempt's result is returned unchanged.
func WithRetry(task Task, cfg resilience.RetryConfig) Task {
	return &retryTask{inner: task, cfg: cfg}
}

type retryTask struct {
	inner Task
	cfg   resilience.RetryConfig
}

func (t *retryTask) Name() string { return t.inner.Name() }

func (t *retryTask) Execute(ctx context.Context, tc TaskContext) TaskResult {
	var last TaskResult
	_, err := resilience.Retry(ctx, t.cfg, func() (TaskResult, error) {
		last = t.inner.Execute(ctx, tc)
		if !last.Success {
			return last, fmt.Errorf("task %s: %s", t.inner.Name(), last.Error)
		}
		return last, nil
	})
	_ = err
	return last
}

// WithTimeout bounds a single task execution. The task body is not forcibly
// terminated: on timeout a failed result is returned and the body finishes
// in the background with a cancelled context.
func WithTimeout(task Task, timeout time.Duration) Task {
	return &timeoutTask{inner: task, timeout: timeout}
}

type timeoutTask struct {
	inner   Task
	timeout time.Duration
}

func (t *timeoutTask) Name() string { return t.inner.Name() }

func (t *timeoutTask) Execute(ctx context.Context, tc TaskContext) TaskResult {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ch := make(chan TaskResult, 1)
	go func() {
		ch <- t.inner.Execute(ctx, tc)
	}()

	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return TaskResult{
			Success: false,
			Error:   fmt.Sprintf("task %s timed out after %s", t.inner.Name(), t.timeout),
		}
	}
}
