package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons attached to dropped and skipped audit events
const (
	ReasonStoreError   = "store_error"
	ReasonBuildError   = "build_error"
	ReasonPanic        = "panic"
	ReasonDisabled     = "disabled"
	ReasonAuditSubject = "audit_subject"
)

// AuditMetrics holds Prometheus metrics for the audit trail
type AuditMetrics struct {
	Recorded *prometheus.CounterVec
	Dropped  *prometheus.CounterVec
	Skipped  *prometheus.CounterVec
}

// NewAuditMetrics creates the audit metrics and registers them with reg.
// A nil reg leaves the metrics unregistered, which suits tests.
func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	factory := promauto.With(reg)
	return &AuditMetrics{
		Recorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_audit_events_recorded_total",
			Help: "Total number of audit events persisted, by event kind",
		}, []string{"event"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_audit_events_dropped_total",
			Help: "Total number of audit events lost to failures, by reason",
		}, []string{"reason"}),
		Skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_audit_events_skipped_total",
			Help: "Total number of automatic audit events not recorded on purpose, by reason",
		}, []string{"reason"}),
	}
}

// IncRecorded increments the recorded counter
func (m *AuditMetrics) IncRecorded(event string) {
	if m == nil {
		return
	}
	m.Recorded.WithLabelValues(event).Inc()
}

// IncDropped increments the dropped counter
func (m *AuditMetrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

// IncSkipped increments the skipped counter
func (m *AuditMetrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(reason).Inc()
}
