package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
)

// AuditRepository keeps audit events in process memory.
// Events are held in insertion order, so ID and CreatedAt never decrease.
// Stored events are copied on the way in and out, so callers cannot alter them.
type AuditRepository struct {
	mu     sync.RWMutex
	events []models.AuditEvent
	nextID int64
	now    func() time.Time
}

// NewAuditRepository creates an empty in-memory audit store
func NewAuditRepository() *AuditRepository {
	return NewAuditRepositoryWithClock(time.Now)
}

// NewAuditRepositoryWithClock creates an empty store that stamps events using now
func NewAuditRepositoryWithClock(now func() time.Time) *AuditRepository {
	return &AuditRepository{nextID: 1, now: now}
}

var _ repositories.AuditRepository = (*AuditRepository)(nil)

// Insert appends an event and assigns its ID and CreatedAt
func (s *AuditRepository) Insert(_ context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UTC()
	if n := len(s.events); n > 0 && createdAt.Before(s.events[n-1].CreatedAt) {
		createdAt = s.events[n-1].CreatedAt
	}

	event.ID = s.nextID
	event.CreatedAt = createdAt
	s.nextID++
	s.events = append(s.events, *event.Clone())
	return nil
}

// GetByID retrieves an event by ID
func (s *AuditRepository) GetByID(_ context.Context, id int64) (*models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.events {
		if s.events[i].ID == id {
			return s.events[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("audit event %d: %w", id, repositories.ErrNotFound)
}

// Query returns one page of matching events, oldest first
func (s *AuditRepository) Query(_ context.Context, filter models.AuditFilter, page models.PageRequest) (*models.AuditPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []int
	for i := range s.events {
		if filter.Matches(&s.events[i]) {
			matched = append(matched, i)
		}
	}

	total := len(matched)
	start := min(max(page.Offset(), 0), total)
	end := total
	if page.Size > 0 && page.Size < total-start {
		end = start + page.Size
	}

	items := make([]*models.AuditEvent, 0, end-start)
	for _, i := range matched[start:end] {
		items = append(items, s.events[i].Clone())
	}
	return models.NewAuditPage(items, page, total), nil
}

// Recent returns the newest events, newest first
func (s *AuditRepository) Recent(_ context.Context, limit int) ([]*models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*models.AuditEvent, 0, max(limit, 0))
	for i := len(s.events) - 1; i >= 0 && len(events) < limit; i-- {
		events = append(events, s.events[i].Clone())
	}
	return events, nil
}

// Len returns the number of stored events
func (s *AuditRepository) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Clear removes every stored event
func (s *AuditRepository) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.nextID = 1
}
