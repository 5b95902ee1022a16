package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/upb/lms-backend/auth"
	"github.com/upb/lms-backend/config"
	"github.com/upb/lms-backend/internal/observability"
	"github.com/upb/lms-backend/internal/runtimeconfig"
	"github.com/upb/lms-backend/middleware"
	"github.com/upb/lms-backend/repositories"
	"github.com/upb/lms-backend/repositories/memory"
	"github.com/upb/lms-backend/repositories/postgres"
	"github.com/upb/lms-backend/services/academics"
	"github.com/upb/lms-backend/services/audit"
	"github.com/upb/lms-backend/services/users"
	"go.uber.org/zap"
)

// AuditFlagKey is the runtime configuration key that switches automatic audit logging
const AuditFlagKey = "AUDIT_LOGGING_ENABLED"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	DB      *postgres.DB // nil with in-memory storage
	AuditDB *postgres.DB // set only when audit events live in their own database

	RepoFactory  *postgres.RepositoryFactory
	Repositories *repositories.Repositories
	TxManager    repositories.TransactionManager

	// Runtime configuration and metrics
	RuntimeConfig *runtimeconfig.EnvManager
	AuditFlag     *runtimeconfig.BoolFlag
	Metrics       *prometheus.Registry

	// Audit trail
	Audit       *audit.Service
	Interceptor *audit.Interceptor

	// Domain services
	Academics *academics.Service
	Users     *users.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := deps.initRuntimeConfig(ctx); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize runtime config: %w", err)
	}

	deps.initMetrics(cfg)
	deps.initAudit(cfg)
	deps.initServices()
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("audit_store", cfg.Audit.Store))
	return deps, nil
}

// initStorage selects the repositories for the configured storage driver and audit store
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		d.Repositories = memory.NewRepositories()
		d.TxManager = memory.NewTransactionManager()
		d.Logger.Warn("using in-memory storage, data is lost on restart")

		if cfg.Audit.Store == config.StoragePostgres {
			auditDB, err := postgres.NewDB(*cfg.AuditDatabase, d.Logger.Named("audit_db"))
			if err != nil {
				return fmt.Errorf("failed to connect to audit database: %w", err)
			}
			d.AuditDB = auditDB
			if err := auditDB.InitAuditSchema(ctx); err != nil {
				return fmt.Errorf("failed to initialize audit schema: %w", err)
			}
			d.Repositories.AuditEvents = postgres.NewAuditRepository(auditDB, d.Logger)
		}

	default:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()
		if factory.AuditDB() != d.DB {
			d.AuditDB = factory.AuditDB()
		}

		if err := factory.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}

		d.Repositories = factory.NewRepositories()
		d.TxManager = factory.GetTransactionManager()

		if cfg.Audit.Store == config.StorageMemory {
			d.Repositories.AuditEvents = memory.NewAuditRepository()
			d.Logger.Warn("using in-memory audit store, audit events are lost on restart")
		}
	}

	d.Logger.Info("repositories initialized")
	return nil
}

func (d *Dependencies) initRuntimeConfig(ctx context.Context) error {
	manager, err := runtimeconfig.NewEnvManager(ctx, ".env")
	if err != nil {
		return err
	}
	d.RuntimeConfig = manager
	d.AuditFlag = runtimeconfig.NewBoolFlag(manager, AuditFlagKey, true)
	return nil
}

// initMetrics creates the Prometheus registry. Metrics stay unregistered when disabled.
func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		return
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = reg
}

func (d *Dependencies) initAudit(cfg *config.Config) {
	var reg prometheus.Registerer
	if d.Metrics != nil {
		reg = d.Metrics
	}

	d.Audit = audit.NewService(
		d.Repositories.AuditEvents,
		audit.ActorResolverFunc(middleware.CauserFromContext),
		observability.NewAuditMetrics(reg),
		d.Logger.Named("audit"),
		audit.Config{
			DefaultPageSize: cfg.Audit.DefaultPageSize,
			MaxPageSize:     cfg.Audit.MaxPageSize,
			RecentLimit:     cfg.Audit.RecentLimit,
		},
	)
	d.Interceptor = audit.NewInterceptor(d.Audit, d.AuditFlag, d.Logger.Named("audit"))
}

func (d *Dependencies) initServices() {
	d.Academics = academics.NewService(d.Repositories, d.TxManager, d.Interceptor, d.Audit, d.Logger.Named("academics"))
	d.Users = users.NewService(d.Repositories.Users, d.Repositories.Roles, d.Interceptor, d.Logger.Named("users"))
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT_SECRET not set, protected routes will reject every request")
	}
	validator := auth.NewValidator(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
	})
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
}

// AuditLoggingEnabled reports the live audit flag, treating an unreadable value as on
func (d *Dependencies) AuditLoggingEnabled() bool {
	if d.AuditFlag == nil {
		return true
	}
	enabled, err := d.AuditFlag.Enabled(context.Background())
	if err != nil {
		return true
	}
	return enabled
}

// Close gracefully shuts down all dependencies. It is safe to call more than once.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		d.RepoFactory = nil
	} else if d.AuditDB != nil {
		if err := d.AuditDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit database: %w", err))
		}
	}
	d.DB, d.AuditDB = nil, nil

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
