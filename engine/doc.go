// Package engine turns a declarative pipeline into a dependency-respecting,
// concurrency-bounded execution schedule.
//
// The pieces compose bottom-up:
//   - DAG validates a pipeline's dependency graph (cycle detection,
//     topological order) and answers ready-task queries.
//   - Executor runs caller-supplied Task implementations under a fixed
//     concurrency limit, isolating panics and emitting best-effort progress.
//   - Runner drives the scheduling loop: dispatch ready tasks, collect
//     completions, skip descendants of failures, detect deadlocks.
//
// Tasks are opaque to the engine. A Registry maps declared task types to
// factories so the API layer can build a TaskSet from a deserialized
// pipeline, and decorators (WithLogging, WithTracing, WithRetry,
// WithTimeout) layer cross-cutting behavior per task.
package engine
