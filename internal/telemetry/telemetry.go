// Package telemetry installs the OpenTelemetry tracer provider used by the
// Chatwork client and the sweep.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "chatwork-autoread"

// Config controls span export. An empty Endpoint disables tracing.
type Config struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	Version     string
}

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

// Setup returns the tracer provider to hand to the client and processor.
// With an endpoint it exports over OTLP/HTTP and becomes the global
// provider; without one it returns a no-op provider.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (trace.TracerProvider, ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: creating OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)

	logger.Info("telemetry: exporting spans", "endpoint", cfg.Endpoint, "sample_ratio", ratio)

	return tp, tp.Shutdown, nil
}
