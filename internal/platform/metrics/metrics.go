package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered   prometheus.Counter
	LoginsStarted     prometheus.Counter
	LoginsCompleted   prometheus.Counter
	PoliciesCreated   prometheus.Counter
	ClaimsCreated     prometheus.Counter
	ClaimsReviewed    *prometheus.CounterVec
	PaymentsConfirmed *prometheus.CounterVec
	AssistantFallback prometheus.Counter
	RequestLatency    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "covergate_users_registered_total",
			Help: "Total number of users registered in the system",
		}),
		LoginsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "covergate_logins_started_total",
			Help: "Total number of successful password checks (OTP issued)",
		}),
		LoginsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "covergate_logins_completed_total",
			Help: "Total number of completed OTP verifications",
		}),
		PoliciesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "covergate_policies_created_total",
			Help: "Total number of policy applications",
		}),
		ClaimsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "covergate_claims_created_total",
			Help: "Total number of claims submitted",
		}),
		ClaimsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "covergate_claims_reviewed_total",
			Help: "Total number of claim review decisions by outcome",
		}, []string{"status"}),
		PaymentsConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "covergate_payments_confirmed_total",
			Help: "Total number of payment confirmations by outcome",
		}, []string{"status"}),
		AssistantFallback: promauto.NewCounter(prometheus.CounterOpts{
			Name: "covergate_assistant_fallback_total",
			Help: "Total number of assistant replies served by the rule-based fallback",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "covergate_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
