package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/services/academics"
	"github.com/upb/lms-backend/utils"
	"go.uber.org/zap"
)

// SubjectRequest is the body of subject create and update requests
type SubjectRequest struct {
	Code           string `json:"code" validate:"required,max=32"`
	Name           string `json:"name" validate:"required,max=200"`
	Credits        int    `json:"credits" validate:"gt=0,max=60"`
	AcademicYearID *int64 `json:"academic_year_id,omitempty" validate:"omitempty,gt=0"`
}

// YearSubjectRequest is a subject created together with its academic year
type YearSubjectRequest struct {
	Code    string `json:"code" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=200"`
	Credits int    `json:"credits" validate:"gt=0,max=60"`
}

// CreateAcademicYearRequest is the body of POST /api/v1/academic-years
type CreateAcademicYearRequest struct {
	Name     string               `json:"name" validate:"required,max=100"`
	StartsOn time.Time            `json:"starts_on" validate:"required"`
	EndsOn   time.Time            `json:"ends_on" validate:"required,gtfield=StartsOn"`
	Active   bool                 `json:"active"`
	Subjects []YearSubjectRequest `json:"subjects" validate:"omitempty,dive"`
}

// AcademicYearResponse is an academic year with the subjects created alongside it
type AcademicYearResponse struct {
	*models.AcademicYear
	Subjects []*models.Subject `json:"subjects,omitempty"`
}

// QuestionRequest is one question of a new quiz
type QuestionRequest struct {
	Prompt string  `json:"prompt" validate:"required"`
	Points float64 `json:"points" validate:"gt=0"`
}

// CreateQuizRequest is the body of POST /api/v1/subjects/{id}/quizzes
type CreateQuizRequest struct {
	Title     string            `json:"title" validate:"required,max=200"`
	MaxScore  float64           `json:"max_score" validate:"gt=0"`
	Questions []QuestionRequest `json:"questions" validate:"omitempty,dive"`
}

// AcademicsService defines the academic operations used by the handler
type AcademicsService interface {
	CreateAcademicYear(ctx context.Context, in academics.AcademicYearInput) (*models.AcademicYear, []*models.Subject, error)
	GetAcademicYear(ctx context.Context, id int64) (*models.AcademicYear, error)
	ListAcademicYears(ctx context.Context, limit, offset int) ([]*models.AcademicYear, error)

	CreateSubject(ctx context.Context, in academics.SubjectInput) (*models.Subject, error)
	GetSubject(ctx context.Context, id int64) (*models.Subject, error)
	ListSubjects(ctx context.Context, academicYearID *int64, limit, offset int) ([]*models.Subject, error)
	UpdateSubject(ctx context.Context, id int64, in academics.SubjectInput) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id int64) error

	CreateQuiz(ctx context.Context, subjectID int64, in academics.QuizInput) (*models.Quiz, error)
	GetQuiz(ctx context.Context, id int64) (*models.Quiz, error)
	PublishQuiz(ctx context.Context, id int64) (*models.Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error
}

// AcademicsHandler handles academic years, subjects and quizzes
type AcademicsHandler struct {
	service AcademicsService
	logger  *zap.Logger
}

// NewAcademicsHandler creates a new AcademicsHandler
func NewAcademicsHandler(service AcademicsService, logger *zap.Logger) *AcademicsHandler {
	return &AcademicsHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreateAcademicYear handles POST /api/v1/academic-years
func (h *AcademicsHandler) HandleCreateAcademicYear(w http.ResponseWriter, r *http.Request) {
	var req CreateAcademicYearRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	in := academics.AcademicYearInput{
		Name:     req.Name,
		StartsOn: req.StartsOn,
		EndsOn:   req.EndsOn,
		Active:   req.Active,
	}
	for _, s := range req.Subjects {
		in.Subjects = append(in.Subjects, academics.SubjectInput{Code: s.Code, Name: s.Name, Credits: s.Credits})
	}

	year, subjects, err := h.service.CreateAcademicYear(r.Context(), in)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}

	_ = utils.WriteCreated(w, AcademicYearResponse{AcademicYear: year, Subjects: subjects})
}

// HandleListAcademicYears handles GET /api/v1/academic-years
func (h *AcademicsHandler) HandleListAcademicYears(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := listWindow(r)
	if err != nil {
		writeBadParam(w, err)
		return
	}

	years, err := h.service.ListAcademicYears(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, years)
}

// HandleGetAcademicYear handles GET /api/v1/academic-years/{id}
func (h *AcademicsHandler) HandleGetAcademicYear(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	year, err := h.service.GetAcademicYear(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, year)
}

// HandleCreateSubject handles POST /api/v1/subjects
func (h *AcademicsHandler) HandleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req SubjectRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	subject, err := h.service.CreateSubject(r.Context(), req.toInput())
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteCreated(w, subject)
}

// HandleListSubjects handles GET /api/v1/subjects?academic_year_id=
func (h *AcademicsHandler) HandleListSubjects(w http.ResponseWriter, r *http.Request) {
	yearID, err := utils.QueryInt64(r, "academic_year_id")
	if err != nil {
		writeBadParam(w, err)
		return
	}
	limit, offset, err := listWindow(r)
	if err != nil {
		writeBadParam(w, err)
		return
	}

	subjects, err := h.service.ListSubjects(r.Context(), yearID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, subjects)
}

// HandleGetSubject handles GET /api/v1/subjects/{id}
func (h *AcademicsHandler) HandleGetSubject(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	subject, err := h.service.GetSubject(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, subject)
}

// HandleUpdateSubject handles PUT /api/v1/subjects/{id}
func (h *AcademicsHandler) HandleUpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	var req SubjectRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	subject, err := h.service.UpdateSubject(r.Context(), id, req.toInput())
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, subject)
}

// HandleDeleteSubject handles DELETE /api/v1/subjects/{id}
func (h *AcademicsHandler) HandleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	if err := h.service.DeleteSubject(r.Context(), id); err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	utils.WriteNoContent(w)
}

// HandleCreateQuiz handles POST /api/v1/subjects/{id}/quizzes
func (h *AcademicsHandler) HandleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	subjectID, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	var req CreateQuizRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	in := academics.QuizInput{Title: req.Title, MaxScore: req.MaxScore}
	for _, q := range req.Questions {
		in.Questions = append(in.Questions, academics.QuestionInput{Prompt: q.Prompt, Points: q.Points})
	}

	quiz, err := h.service.CreateQuiz(r.Context(), subjectID, in)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteCreated(w, quiz)
}

// HandleGetQuiz handles GET /api/v1/quizzes/{id}
func (h *AcademicsHandler) HandleGetQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	quiz, err := h.service.GetQuiz(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, quiz)
}

// HandlePublishQuiz handles POST /api/v1/quizzes/{id}/publish
func (h *AcademicsHandler) HandlePublishQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	quiz, err := h.service.PublishQuiz(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	_ = utils.WriteOK(w, quiz)
}

// HandleDeleteQuiz handles DELETE /api/v1/quizzes/{id}
func (h *AcademicsHandler) HandleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamInt64(r, "id")
	if err != nil {
		writeBadParam(w, err)
		return
	}

	if err := h.service.DeleteQuiz(r.Context(), id); err != nil {
		HandleServiceError(w, err, requestLogger(h.logger, r))
		return
	}
	utils.WriteNoContent(w)
}

func (req SubjectRequest) toInput() academics.SubjectInput {
	return academics.SubjectInput{
		Code:           req.Code,
		Name:           req.Name,
		Credits:        req.Credits,
		AcademicYearID: req.AcademicYearID,
	}
}
