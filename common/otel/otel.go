// Package otel wires a process-local trace provider used only to attach
// trace/span ids to structured log lines (see common/logger.TraceHandler).
// There is no exporter: sending spans to a collector is a monitoring-UI
// concern this repository does not own.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.tracerProvider == nil {
		return nil
	}
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer shutdown: %w", err)
	}
	return nil
}

// Setup installs a process-local TracerProvider with no span processor, so
// spans cost an id allocation but never leave the process. serviceName is
// attached as a resource attribute purely so trace ids read sensibly if a
// developer later decides to wire an exporter.
func Setup(serviceName string) (*Telemetry, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	return &Telemetry{tracerProvider: tracerProvider}, nil
}
