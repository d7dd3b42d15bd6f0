package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/AdaPayAcquirer/internal/handler"
	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/auth"
	service "github.com/honeynil/AdaPayAcquirer/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(RequestCounter, RequestDuration)
}

type RouterConfig struct {
	JWTSecret        string
	WebhookTokenHash string
	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler
}

func SetupRouter(svc service.PaymentService, cfg RouterConfig) *mux.Router {
	h := handler.NewHandler(svc)

	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	h.RegisterPublicRoutes(r)

	webhook := r.NewRoute().Subrouter()
	webhook.Use(auth.WebhookTokenMiddleware(cfg.WebhookTokenHash))
	h.RegisterWebhookRoutes(webhook)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(auth.AuthMiddleware(cfg.JWTSecret))
	h.RegisterProtectedRoutes(protected)

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Handle("/metrics", metrics)
	return r
}

// metricsMiddleware labels requests by route template so path parameters do
// not explode the series count.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}

		status := fmt.Sprintf("%d", recorder.status)
		RequestCounter.WithLabelValues(r.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
