// Package metrics exposes Prometheus collectors for the RPC surface and the
// analyzers behind it.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ─── RPC Metrics ────────────────────────────────────────────────────────────

// RPCRequests counts unary calls by procedure and result code.
var RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lemon",
	Subsystem: "rpc",
	Name:      "requests_total",
	Help:      "Total RPC requests by procedure and connect code.",
}, []string{"procedure", "code"})

// RPCDuration observes handler latency.
var RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "lemon",
	Subsystem: "rpc",
	Name:      "duration_seconds",
	Help:      "RPC handler latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"procedure"})

// ─── Analytics Metrics ──────────────────────────────────────────────────────

// BudgetHealth counts budget evaluations by resulting health status.
var BudgetHealth = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lemon",
	Subsystem: "analytics",
	Name:      "budget_health_total",
	Help:      "Budget health evaluations by status.",
}, []string{"status"})

// SubscriptionAnomalies counts inflation anomalies reported by audits.
var SubscriptionAnomalies = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lemon",
	Subsystem: "analytics",
	Name:      "subscription_anomalies_total",
	Help:      "Subscription price anomalies reported.",
})

// SuggestionsReturned observes how many suggestions each ranking returns.
var SuggestionsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "lemon",
	Subsystem: "analytics",
	Name:      "suggestions_returned",
	Help:      "Number of suggestions returned per ranking request.",
	Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
})

// RiskLevels counts insight requests by risk level.
var RiskLevels = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lemon",
	Subsystem: "analytics",
	Name:      "risk_level_total",
	Help:      "Spending insight requests by risk level.",
}, []string{"level"})

// NotificationsCreated counts stored notifications by type.
var NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lemon",
	Subsystem: "notifications",
	Name:      "created_total",
	Help:      "Notifications created by type.",
}, []string{"type"})

// Interceptor records RPCRequests and RPCDuration for every unary call.
func Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			start := time.Now()

			resp, err := next(ctx, req)

			RPCDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			RPCRequests.WithLabelValues(procedure, CodeOf(err)).Inc()
			return resp, err
		}
	}
}

// CodeOf returns the connect code label for err, "ok" when err is nil.
func CodeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
