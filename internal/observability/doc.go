// Package observability provides structured logging and Prometheus metrics
// for the LMS backend.
//
// Loggers are zap-based. Audit metrics count recorded, dropped and skipped
// audit events and are exposed on /metrics when METRICS_ENABLED is set.
package observability
