package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/upb/lms-backend/utils"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// listWindow reads limit and offset query parameters for plain list endpoints
func listWindow(r *http.Request) (limit, offset int, err error) {
	if limit, err = utils.QueryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = utils.QueryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}

// requestLogger returns logger tagged with the chi request id
func requestLogger(logger *zap.Logger, r *http.Request) *zap.Logger {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}

// writeBadParam answers 400 for a malformed path or query parameter
func writeBadParam(w http.ResponseWriter, err error) {
	_ = utils.WriteBadRequest(w, err.Error(), nil)
}
