package runtimeconfig

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BoolFlag is a boolean feature flag read through a Manager on every call
type BoolFlag struct {
	manager      Manager
	key          string
	defaultValue bool
}

// NewBoolFlag creates a flag for key. defaultValue applies when the key is unset.
func NewBoolFlag(manager Manager, key string, defaultValue bool) *BoolFlag {
	return &BoolFlag{manager: manager, key: key, defaultValue: defaultValue}
}

// Enabled reports the current flag value.
// A value that cannot be read or parsed is returned as an error; callers decide
// whether that means on or off.
func (f *BoolFlag) Enabled(ctx context.Context) (bool, error) {
	raw, err := f.manager.Get(ctx, f.key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return f.defaultValue, nil
		}
		return false, err
	}

	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid value %q for %s: %w", raw, f.key, err)
	}
	return v, nil
}

// Key returns the flag's configuration key
func (f *BoolFlag) Key() string {
	return f.key
}
