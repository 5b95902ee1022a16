package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/upb/lms-backend/internal/observability"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

// Config holds configuration for the audit Service
type Config struct {
	DefaultPageSize int // Page size when the caller gives none
	MaxPageSize     int // Upper bound for a requested page size
	RecentLimit     int // Number of events returned by Recent
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 20,
		MaxPageSize:     100,
		RecentLimit:     10,
	}
}

// Service records and reads the audit trail.
//
// Writes are best effort: a failure is logged and counted, and the caller
// gets nil or an empty result instead of an error. Nothing here can abort
// the business operation that produced the event.
type Service struct {
	repo      repositories.AuditRepository
	resolver  ActorResolver
	extractor *Extractor
	metrics   *observability.AuditMetrics
	logger    *zap.Logger
	config    Config
}

// NewService creates a new audit Service. resolver and metrics may be nil.
func NewService(
	repo repositories.AuditRepository,
	resolver ActorResolver,
	metrics *observability.AuditMetrics,
	logger *zap.Logger,
	config Config,
) *Service {
	if resolver == nil {
		resolver = NoActor
	}
	defaults := DefaultConfig()
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = defaults.DefaultPageSize
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = defaults.MaxPageSize
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = defaults.RecentLimit
	}

	return &Service{
		repo:      repo,
		resolver:  resolver,
		extractor: NewExtractor(logger),
		metrics:   metrics,
		logger:    logger,
		config:    config,
	}
}

// Extractor returns the attribute extractor used by the service
func (s *Service) Extractor() *Extractor {
	return s.extractor
}

// Log starts a new event on the given log channel
func (s *Service) Log(logName string) *Builder {
	return &Builder{svc: s, logName: logName}
}

// Append stores an event and returns it with ID and CreatedAt assigned,
// or nil when the store failed.
func (s *Service) Append(ctx context.Context, event *models.AuditEvent) (stored *models.AuditEvent) {
	if event == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("audit append panicked",
				zap.Any("panic", r),
				zap.String("event", event.Event))
			s.metrics.IncDropped(observability.ReasonPanic)
			stored = nil
		}
	}()

	if err := s.repo.Insert(ctx, event); err != nil {
		s.logger.Error("failed to store audit event",
			zap.Error(err),
			zap.String("log_name", event.LogName),
			zap.String("event", event.Event),
			zap.Stringp("subject_type", event.SubjectType),
			zap.Stringp("subject_id", event.SubjectID))
		s.metrics.IncDropped(observability.ReasonStoreError)
		return nil
	}

	s.metrics.IncRecorded(event.Event)
	return event
}

// Query returns one page of matching events, oldest first.
// A failed read yields an empty page, never nil.
func (s *Service) Query(ctx context.Context, filter models.AuditFilter, page models.PageRequest) (result *models.AuditPage) {
	page = s.normalizePage(page)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("audit query panicked", zap.Any("panic", r))
			result = models.NewAuditPage(nil, page, 0)
		}
	}()

	result, err := s.repo.Query(ctx, filter, page)
	if err != nil {
		s.logger.Error("failed to query audit events", zap.Error(err))
		return models.NewAuditPage(nil, page, 0)
	}
	return result
}

// Recent returns the newest events, newest first. A failed read yields an empty slice.
func (s *Service) Recent(ctx context.Context) (events []*models.AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recent audit read panicked", zap.Any("panic", r))
			events = []*models.AuditEvent{}
		}
	}()

	events, err := s.repo.Recent(ctx, s.config.RecentLimit)
	if err != nil {
		s.logger.Error("failed to read recent audit events", zap.Error(err))
		return []*models.AuditEvent{}
	}
	return events
}

// Get returns one event. Unlike the other reads it reports errors, so
// callers can tell a missing event from a store failure.
func (s *Service) Get(ctx context.Context, id int64) (*models.AuditEvent, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}
	return event, nil
}

func (s *Service) normalizePage(page models.PageRequest) models.PageRequest {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Size <= 0 {
		page.Size = s.config.DefaultPageSize
	}
	if page.Size > s.config.MaxPageSize {
		page.Size = s.config.MaxPageSize
	}
	if last := math.MaxInt / page.Size; page.Page > last {
		page.Page = last
	}
	return page
}

func (s *Service) currentCauser(ctx context.Context) (causer *models.Causer) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("audit causer resolution failed", zap.Any("panic", r))
			causer = nil
		}
	}()

	c, ok := s.resolver.CurrentCauser(ctx)
	if !ok || c == nil {
		return nil
	}
	return c
}

// normalize converts a property bag into plain JSON values. Nested objects
// are converted key by key so one bad value only loses itself.
func (s *Service) normalize(bag map[string]any) models.Properties {
	out := models.Properties{}
	for k, v := range bag {
		if nested, ok := v.(map[string]any); ok {
			out[k] = map[string]any(s.normalize(nested))
			continue
		}

		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Warn("dropping audit property that cannot be encoded",
				zap.String("key", k), zap.Error(err))
			continue
		}
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			s.logger.Warn("dropping audit property that cannot be decoded",
				zap.String("key", k), zap.Error(err))
			continue
		}
		out[k] = decoded
	}
	return out
}
