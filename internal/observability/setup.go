package observability

import (
	"context"
	"net/http"

	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(serviceName, otlpEndpoint string) (func(context.Context) error, http.Handler) {
	observability.InitLogger()
	observability.InitMetrics()
	tracerShutdown := observability.InitTracing(serviceName, otlpEndpoint)
	return tracerShutdown, promhttp.Handler()
}
