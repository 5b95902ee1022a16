package handlers

import (
	"net/http"

	"github.com/upb/lms-backend/utils"
)

// Version is reported by the status endpoint. Overridden at build time with -ldflags.
var Version = "0.1.0"

// StatusInfo describes the running deployment
type StatusInfo struct {
	Environment  string      `json:"environment"`
	Storage      string      `json:"storage"`
	AuditStore   string      `json:"audit_store"`
	AuditEnabled func() bool `json:"-"`
}

// StatusResponse is the body of GET /api/v1/status
type StatusResponse struct {
	Version      string `json:"version"`
	Environment  string `json:"environment"`
	Storage      string `json:"storage"`
	AuditStore   string `json:"audit_store"`
	AuditLogging bool   `json:"audit_logging"`
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	enabled := true
	if h.status.AuditEnabled != nil {
		enabled = h.status.AuditEnabled()
	}

	_ = utils.WriteOK(w, StatusResponse{
		Version:      Version,
		Environment:  h.status.Environment,
		Storage:      h.status.Storage,
		AuditStore:   h.status.AuditStore,
		AuditLogging: enabled,
	})
}
