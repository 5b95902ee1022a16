package handlers

import (
	"context"
	"net/http"

	"github.com/upb/lms-backend/middleware"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/services/users"
	"github.com/upb/lms-backend/utils"
	"go.uber.org/zap"
)

// CreateUserRequest is the body of POST /api/v1/users
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin teacher student"`
}

// UpdateUserRequest is the body of PUT /api/v1/users/{id}. Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	Role   *string `json:"role,omitempty" validate:"omitempty,oneof=admin teacher student"`
	Active *bool   `json:"active,omitempty"`
}

// UserService defines the user operations used by the handler
type UserService interface {
	CreateUser(ctx context.Context, req users.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, req users.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// UserHandler handles user account requests
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// CurrentUserResponse is the body of GET /api/v1/users/me
type CurrentUserResponse struct {
	Subject string `json:"sub"`
	UserID  int64  `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
}

// HandleCurrentUser handles GET /api/v1/users/me from the token claims
func (h *UserHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	_ = utils.WriteOK(w, CurrentUserResponse{
		Subject: claims.Subject,
		UserID:  claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
	})
}

// HandleCreateUser handles POST /api/v1/users
func (h *UserHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.service.CreateUser(r.Context(), users.CreateUserRequest{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteCreated(w, user)
}

// HandleListUsers handles GET /api/v1/users
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := listWindow(r)
	if err != nil {
		writeBadParam(w, err)
		return
	}

	list, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, list)
}

// HandleGetUser handles GET /api/v1/users/{id}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleUpdateUser handles PUT /api/v1/users/{id}
func (h *UserHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	var req UpdateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, users.UpdateUserRequest{
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
		Active: req.Active,
	})
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleDeleteUser handles DELETE /api/v1/users/{id}
func (h *UserHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	utils.WriteNoContent(w)
}
