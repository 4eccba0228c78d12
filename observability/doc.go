// Package observability wires OpenTelemetry tracing and metrics for expflow
// services: OTLP exporter setup, span helpers, and the metric instruments
// recorded around pipeline runs and task executions.
package observability
