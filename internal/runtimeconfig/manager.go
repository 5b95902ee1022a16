package runtimeconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// ErrKeyNotFound is returned when a key has no value in any source
var ErrKeyNotFound = errors.New("runtime config key not found")

// Manager provides access to runtime configuration.
type Manager interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, defaultValue string) string
	Reload(ctx context.Context) error
}

// EnvManager reads values from the environment, falling back to .env files.
// Environment variables always win over file values.
type EnvManager struct {
	files []string

	mu     sync.RWMutex
	values map[string]string
}

// NewEnvManager creates a manager over the given .env files and loads them.
// Missing files are ignored.
func NewEnvManager(ctx context.Context, files ...string) (*EnvManager, error) {
	m := &EnvManager{files: files, values: map[string]string{}}
	if err := m.Reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns the value for key
func (m *EnvManager) Get(_ context.Context, key string) (string, error) {
	if v, ok := os.LookupEnv(key); ok {
		return v, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", key, ErrKeyNotFound)
}

// GetWithDefault returns the value for key or defaultValue when it is unset
func (m *EnvManager) GetWithDefault(ctx context.Context, key, defaultValue string) string {
	v, err := m.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	return v
}

// Reload re-reads the .env files
func (m *EnvManager) Reload(_ context.Context) error {
	var existing []string
	for _, f := range m.files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	values := map[string]string{}
	if len(existing) > 0 {
		read, err := godotenv.Read(existing...)
		if err != nil {
			return fmt.Errorf("failed to read env files: %w", err)
		}
		values = read
	}

	m.mu.Lock()
	m.values = values
	m.mu.Unlock()
	return nil
}
