// Package metrics defines Prometheus metrics for the admin service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admin_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	OTPIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_otp_issued_total",
			Help: "One-time codes issued",
		},
	)

	OTPVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_otp_verifications_total",
			Help: "One-time code verification outcomes",
		},
		[]string{"outcome"},
	)

	AuditEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_audit_entries_total",
			Help: "Audit log entries written by action",
		},
		[]string{"action", "outcome"},
	)

	SecurityEventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_security_event_publish_failures_total",
			Help: "Security events that could not be published to Kafka",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal,
		OTPIssued, OTPVerifications,
		AuditEntries, SecurityEventPublishFailures,
	)
}
