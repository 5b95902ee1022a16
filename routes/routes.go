package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/lms-backend/app"
	"github.com/upb/lms-backend/handlers"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories/postgres"
	"github.com/upb/lms-backend/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(handlers.StatusInfo{
		Environment:  deps.Config.Environment,
		Storage:      deps.Config.Storage.Driver,
		AuditStore:   deps.Config.Audit.Store,
		AuditEnabled: deps.AuditLoggingEnabled,
	}, deps.Logger,
		handlers.DatabaseCheck{Name: "database", DB: sqlDB(deps.DB)},
		handlers.DatabaseCheck{Name: "audit_database", DB: sqlDB(deps.AuditDB)},
	)

	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	academicsHandler := handlers.NewAcademicsHandler(deps.Academics, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Logger)
	auditHandler := handlers.NewAuditHandler(deps.Audit, deps.Logger)

	staff := deps.AuthMiddleware.RequireRole(models.RoleAdmin, models.RoleTeacher)
	adminOnly := deps.AuthMiddleware.RequireRole(models.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", health.HandleStatus)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			r.Route("/academic-years", func(r chi.Router) {
				r.Get("/", academicsHandler.HandleListAcademicYears)
				r.Get("/{id}", academicsHandler.HandleGetAcademicYear)
				r.With(staff).Post("/", academicsHandler.HandleCreateAcademicYear)
			})

			r.Route("/subjects", func(r chi.Router) {
				r.Get("/", academicsHandler.HandleListSubjects)
				r.Get("/{id}", academicsHandler.HandleGetSubject)

				r.Group(func(r chi.Router) {
					r.Use(staff)
					r.Post("/", academicsHandler.HandleCreateSubject)
					r.Put("/{id}", academicsHandler.HandleUpdateSubject)
					r.Delete("/{id}", academicsHandler.HandleDeleteSubject)
					r.Post("/{id}/quizzes", academicsHandler.HandleCreateQuiz)
				})
			})

			r.Route("/quizzes", func(r chi.Router) {
				r.Get("/{id}", academicsHandler.HandleGetQuiz)

				r.Group(func(r chi.Router) {
					r.Use(staff)
					r.Post("/{id}/publish", academicsHandler.HandlePublishQuiz)
					r.Delete("/{id}", academicsHandler.HandleDeleteQuiz)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.HandleCurrentUser)

				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Get("/", userHandler.HandleListUsers)
					r.Post("/", userHandler.HandleCreateUser)
					r.Get("/{id}", userHandler.HandleGetUser)
					r.Put("/{id}", userHandler.HandleUpdateUser)
					r.Delete("/{id}", userHandler.HandleDeleteUser)
				})
			})

			// Audit trail (admin role required)
			r.Route("/audit/events", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", auditHandler.HandleListEvents)
				r.Get("/recent", auditHandler.HandleRecentEvents)
				r.Get("/{id}", auditHandler.HandleGetEvent)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

func sqlDB(db *postgres.DB) *sql.DB {
	if db == nil {
		return nil
	}
	return db.DB
}
