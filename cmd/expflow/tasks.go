package main

import (
	"context"
	"fmt"
	"time"

	"github.com/skillsenselab/expflow/engine"
	"github.com/skillsenselab/expflow/logger"
	"github.com/skillsenselab/expflow/observability"
	"github.com/skillsenselab/expflow/pipeline"
)

// builtinRegistry registers the task types the binary ships with. Real
// experiment steps are expected to be registered by embedding programs; these
// built-ins cover smoke tests and pipeline wiring checks. metrics may be nil.
func builtinRegistry(log *logger.Logger, metrics *observability.Metrics) *engine.Registry {
	r := engine.NewRegistry()

	r.Register("noop", func(decl pipeline.Task) (engine.Task, error) {
		return withDefaults(engine.TaskFunc{
			TaskName: decl.Name,
			Fn: func(ctx context.Context, tc engine.TaskContext) engine.TaskResult {
				return engine.TaskResult{Success: true, Output: decl.Config}
			},
		}, decl.Type, log, metrics), nil
	})

	r.Register("sleep", func(decl pipeline.Task) (engine.Task, error) {
		d, err := durationFromConfig(decl.Config, "duration")
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", decl.ID, err)
		}
		return withDefaults(engine.TaskFunc{
			TaskName: decl.Name,
			Fn: func(ctx context.Context, tc engine.TaskContext) engine.TaskResult {
				select {
				case <-time.After(d):
					return engine.TaskResult{Success: true, Output: d.String()}
				case <-ctx.Done():
					return engine.TaskResult{Success: false, Error: ctx.Err().Error()}
				}
			},
		}, decl.Type, log, metrics), nil
	})

	r.Register("log", func(decl pipeline.Task) (engine.Task, error) {
		msg, _ := decl.Config["message"].(string)
		return withDefaults(engine.TaskFunc{
			TaskName: decl.Name,
			Fn: func(ctx context.Context, tc engine.TaskContext) engine.TaskResult {
				log.Info(msg, map[string]interface{}{
					logger.FieldTaskID: decl.ID,
					"experiment":       tc.ExperimentID,
				})
				return engine.TaskResult{Success: true}
			},
		}, decl.Type, log, metrics), nil
	})

	// fail always fails; useful for exercising skip propagation.
	r.Register("fail", func(decl pipeline.Task) (engine.Task, error) {
		msg, _ := decl.Config["message"].(string)
		if msg == "" {
			msg = "task configured to fail"
		}
		return withDefaults(engine.TaskFunc{
			TaskName: decl.Name,
			Fn: func(ctx context.Context, tc engine.TaskContext) engine.TaskResult {
				return engine.TaskResult{Success: false, Error: msg}
			},
		}, decl.Type, log, metrics), nil
	})

	return r
}

func withDefaults(task engine.Task, taskType string, log *logger.Logger, metrics *observability.Metrics) engine.Task {
	task = engine.WithLogging(engine.WithTracing(task, "task"), log)
	if metrics != nil {
		task = engine.WithMetrics(task, taskType, metrics)
	}
	return task
}

func durationFromConfig(cfg map[string]any, key string) (time.Duration, error) {
	raw, ok := cfg[key]
	if !ok {
		return 0, fmt.Errorf("config key %q is required", key)
	}
	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("config key %q: %w", key, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("config key %q has unsupported type %T", key, raw)
	}
}
