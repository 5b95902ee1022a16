package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"github.com/upb/lms-backend/services"
	"github.com/upb/lms-backend/services/audit"
	"github.com/upb/lms-backend/utils"
	"go.uber.org/zap"
)

// AuditHandler exposes the audit trail read API
type AuditHandler struct {
	audit  *audit.Service
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditSvc *audit.Service, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  auditSvc,
		logger: logger,
	}
}

// HandleListEvents handles GET /api/v1/audit/events
// Filters are optional and combined with AND. Results are oldest first.
func (h *AuditHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		writeBadParam(w, err)
		return
	}

	page, err := utils.QueryInt(r, "page")
	if err != nil {
		writeBadParam(w, err)
		return
	}
	size, err := utils.QueryInt(r, "size")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	result := h.audit.Query(r.Context(), filter, models.PageRequest{Page: page, Size: size})

	requestLogger(h.logger, r).Debug("listed audit events",
		zap.Int("page", result.Page),
		zap.Int("total", result.Total))

	if err := utils.WriteJSON(w, http.StatusOK, utils.ListResponse{
		Data:       result.Items,
		Page:       result.Page,
		Size:       result.Size,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}); err != nil {
		h.logger.Error("failed to write audit events response", zap.Error(err))
	}
}

// HandleRecentEvents handles GET /api/v1/audit/events/recent
func (h *AuditHandler) HandleRecentEvents(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.audit.Recent(r.Context()))
}

// HandleGetEvent handles GET /api/v1/audit/events/{id}
func (h *AuditHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	event, err := h.audit.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			HandleServiceError(w, services.ErrAuditEventNotFound, h.logger)
			return
		}
		HandleServiceError(w, services.WrapInternal("failed to read audit event", err), requestLogger(h.logger, r))
		return
	}

	_ = utils.WriteOK(w, event)
}

func parseAuditFilter(r *http.Request) (models.AuditFilter, error) {
	filter := models.AuditFilter{
		LogName:     utils.QueryString(r, "log_name"),
		Event:       utils.QueryString(r, "event"),
		SubjectType: utils.QueryString(r, "subject_type"),
		SubjectID:   utils.QueryString(r, "subject_id"),
		CauserID:    utils.QueryString(r, "causer_id"),
	}

	var err error
	if filter.CreatedFrom, err = utils.QueryTime(r, "from"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = utils.QueryTime(r, "to"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return filter, errors.New("invalid range: to is before from")
	}
	return filter, nil
}
