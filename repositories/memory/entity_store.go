package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
)

// entityStore is a generic id-keyed table. Rows are cloned on the way in and
// out so callers never share memory with the store.
type entityStore[E models.Entity] struct {
	mu     sync.RWMutex
	name   string
	rows   map[int64]E
	nextID int64
	assign func(E, int64)
	clone  func(E) E
}

func newEntityStore[E models.Entity](name string, assign func(E, int64), clone func(E) E) *entityStore[E] {
	return &entityStore[E]{
		name:   name,
		rows:   make(map[int64]E),
		nextID: 1,
		assign: assign,
		clone:  clone,
	}
}

// check runs a constraint against the other rows; the lock must be held
type check[E models.Entity] func(entity E, others []E) error

func (s *entityStore[E]) create(entity E, checks ...check[E]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.runChecks(entity, checks); err != nil {
		return err
	}
	s.assign(entity, s.nextID)
	s.nextID++
	s.rows[entity.EntityID()] = s.clone(entity)
	return nil
}

func (s *entityStore[E]) get(id int64) (E, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		var zero E
		return zero, fmt.Errorf("%s %d: %w", s.name, id, repositories.ErrNotFound)
	}
	return s.clone(row), nil
}

func (s *entityStore[E]) list(limit, offset int, keep func(E) bool) []E {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.rows))
	for id, row := range s.rows {
		if keep == nil || keep(row) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if offset > len(ids) {
		offset = len(ids)
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]E, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.clone(s.rows[id]))
	}
	return out
}

func (s *entityStore[E]) update(entity E, checks ...check[E]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := entity.EntityID()
	if _, ok := s.rows[id]; !ok {
		return fmt.Errorf("%s %d: %w", s.name, id, repositories.ErrNotFound)
	}
	if err := s.runChecks(entity, checks); err != nil {
		return err
	}
	s.rows[id] = s.clone(entity)
	return nil
}

func (s *entityStore[E]) delete(id int64, guard func(E) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", s.name, id, repositories.ErrNotFound)
	}
	if guard != nil {
		if err := guard(row); err != nil {
			return err
		}
	}
	delete(s.rows, id)
	return nil
}

func (s *entityStore[E]) exists(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[id]
	return ok
}

func (s *entityStore[E]) runChecks(entity E, checks []check[E]) error {
	if len(checks) == 0 {
		return nil
	}
	others := make([]E, 0, len(s.rows))
	for id, row := range s.rows {
		if id != entity.EntityID() {
			others = append(others, row)
		}
	}
	for _, c := range checks {
		if err := c(entity, others); err != nil {
			return err
		}
	}
	return nil
}
