package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
)

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) GetByID(ctx context.Context, id int64) (*models.AuditEvent, error) {
	args := m.Called(ctx, id)
	if event := args.Get(0); event != nil {
		return event.(*models.AuditEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) Query(ctx context.Context, filter models.AuditFilter, page models.PageRequest) (*models.AuditPage, error) {
	args := m.Called(ctx, filter, page)
	if result := args.Get(0); result != nil {
		return result.(*models.AuditPage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) Recent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, limit)
	if events := args.Get(0); events != nil {
		return events.([]*models.AuditEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

// staticFlag is a FeatureFlag with a fixed answer
type staticFlag struct {
	on  bool
	err error
}

func (f staticFlag) Enabled(context.Context) (bool, error) {
	return f.on, f.err
}

// fakeTransaction records after-commit hooks without a database
type fakeTransaction struct {
	ctx   context.Context
	hooks []func(ctx context.Context)
}

func (t *fakeTransaction) Commit() error {
	hooks := t.hooks
	t.hooks = nil
	for _, hook := range hooks {
		hook(t.ctx)
	}
	return nil
}

func (t *fakeTransaction) Rollback() error {
	t.hooks = nil
	return nil
}

func (t *fakeTransaction) Context() context.Context {
	return t.ctx
}

func (t *fakeTransaction) AfterCommit(fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, fn)
}

var _ repositories.Transaction = (*fakeTransaction)(nil)

// fakeUserRepository is an in-memory EntityRepository for users
type fakeUserRepository struct {
	mu        sync.Mutex
	users     map[int64]models.User
	nextID    int64
	failWrite error
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[int64]models.User{}, nextID: 1}
}

func (r *fakeUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
	}
	return &user, nil
}

func (r *fakeUserRepository) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []*models.User
	for id := int64(1); id < r.nextID; id++ {
		if user, ok := r.users[id]; ok {
			users = append(users, &user)
		}
	}
	return users, nil
}

func (r *fakeUserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	if _, ok := r.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

var errReferenced = errors.New("user is still referenced")
