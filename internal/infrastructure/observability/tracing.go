package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracing installs a global tracer provider exporting over OTLP/HTTP.
// Without an endpoint the global no-op provider stays in place.
func InitTracing(serviceName, endpoint string) func(context.Context) error {
	if endpoint == "" {
		slog.Info("tracing disabled, no OTLP endpoint configured")
		return func(context.Context) error { return nil }
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		slog.Error("failed to create OTLP exporter", "endpoint", endpoint, "error", err)
		return func(context.Context) error { return nil }
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	slog.Info("tracing initialized", "service", serviceName, "endpoint", endpoint)
	return provider.Shutdown
}
