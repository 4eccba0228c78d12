// Package pipeline defines the declarative experiment pipeline model:
// a pipeline of ordered stages, each holding tasks with explicit dependency
// ids and opaque config payloads.
//
// The model carries no behavior beyond construction and loading. Structural
// validation (dependency closure, acyclicity) happens when the engine builds
// a DAG from a pipeline.
package pipeline
