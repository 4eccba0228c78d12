package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/skillsenselab/expflow/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds metric instruments for pipeline run observability.
type Metrics struct {
	runTotal     metric.Int64Counter
	runDuration  metric.Float64Histogram
	taskTotal    metric.Int64Counter
	taskDuration metric.Float64Histogram
	taskActive   metric.Int64UpDownCounter
	errorTotal   metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("run.total",
		metric.WithDescription("Total number of pipeline runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("run.duration",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run.duration histogram: %w", err)
	}

	taskTotal, err := meter.Int64Counter("task.total",
		metric.WithDescription("Total number of executed tasks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.total counter: %w", err)
	}

	taskDuration, err := meter.Float64Histogram("task.duration",
		metric.WithDescription("Duration of task executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.duration histogram: %w", err)
	}

	taskActive, err := meter.Int64UpDownCounter("task.active",
		metric.WithDescription("Number of currently executing tasks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.active gauge: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		runTotal:     runTotal,
		runDuration:  runDuration,
		taskTotal:    taskTotal,
		taskDuration: taskDuration,
		taskActive:   taskActive,
		errorTotal:   errorTotal,
	}, nil
}

// RecordRun records a finished pipeline run.
func (m *Metrics) RecordRun(ctx context.Context, pipelineID, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("pipeline", pipelineID),
		attribute.String("status", status),
	)
	m.runTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("pipeline", pipelineID),
	))
}

// RecordTaskStart increments the active task count.
func (m *Metrics) RecordTaskStart(ctx context.Context) {
	m.taskActive.Add(ctx, 1)
}

// RecordTaskEnd decrements active tasks and records the completed task.
func (m *Metrics) RecordTaskEnd(ctx context.Context, taskType, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("type", taskType),
		attribute.String("status", status),
	)
	m.taskActive.Add(ctx, -1)
	m.taskTotal.Add(ctx, 1, attrs)
	m.taskDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("type", taskType),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
