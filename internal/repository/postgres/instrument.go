package repository

import (
	"context"
	"time"

	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrument starts a span for method and returns a finisher that records the
// outcome in the span and in the repository metrics.
func instrument(ctx context.Context, tracerName, method string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, method, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(errp *error) {
		status := "success"
		if errp != nil && *errp != nil {
			status = "error"
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		observability.RepositoryCalls.WithLabelValues(method, status).Inc()
		observability.RepositoryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		span.End()
	}
}
