package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/lms-backend/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// DatabaseCheck names a database probed by the readiness check
type DatabaseCheck struct {
	Name string
	DB   *sql.DB
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	databases []DatabaseCheck
	status    StatusInfo
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Checks with a nil DB are skipped.
func NewHealthHandler(status StatusInfo, logger *zap.Logger, databases ...DatabaseCheck) *HealthHandler {
	return &HealthHandler{
		databases: databases,
		status:    status,
		logger:    logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness only: returns 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	for _, check := range h.databases {
		if check.DB == nil {
			continue
		}
		if err := checkDatabase(ctx, check.DB); err != nil {
			h.logger.Warn("database health check failed",
				zap.String("database", check.Name),
				zap.Error(err))
			checks[check.Name] = "unhealthy"
			allHealthy = false
			continue
		}
		checks[check.Name] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase pings the database and runs a trivial query
func checkDatabase(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
