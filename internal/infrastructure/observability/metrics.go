package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Счётчик вызовов методов репозитория
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	// Гистограмма времени выполнения запросов
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	GatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapay_gateway_calls_total",
			Help: "Total number of AdaPay and conversion provider API calls",
		},
		[]string{"operation", "status"},
	)

	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adapay_gateway_duration_seconds",
			Help:    "Duration of AdaPay and conversion provider API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapay_webhook_events_total",
			Help: "Webhook events received, by event name and outcome",
		},
		[]string{"event", "result"},
	)

	Refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapay_refresh_total",
			Help: "Polling refreshes, by trigger and outcome",
		},
		[]string{"trigger", "result"},
	)

	StateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapay_state_transitions_total",
			Help: "Local transaction state transitions",
		},
		[]string{"from", "to"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(
		RepositoryCalls,
		RepositoryDuration,
		GatewayCalls,
		GatewayDuration,
		WebhookEvents,
		Refreshes,
		StateTransitions,
	)
}
