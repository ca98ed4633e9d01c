package feature

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryProvider is an in-memory implementation of the Provider interface.
// Flags are copied on the way in and on the way out.
type MemoryProvider struct {
	flags map[string]*Flag
	mu    sync.RWMutex
	now   func() time.Time
}

// NewMemoryProvider creates a new in-memory feature flag provider.
func NewMemoryProvider(initialFlags ...*Flag) (*MemoryProvider, error) {
	provider := &MemoryProvider{
		flags: make(map[string]*Flag),
		now:   time.Now,
	}

	for _, flag := range initialFlags {
		if flag == nil {
			continue
		}
		if err := flag.Validate(); err != nil {
			return nil, err
		}
		if _, exists := provider.flags[flag.Name]; exists {
			return nil, errors.Join(ErrInvalidFlag, errors.New("duplicate flag "+flag.Name))
		}

		flagCopy := flag.Clone()
		if flagCopy.CreatedAt.IsZero() {
			flagCopy.CreatedAt = provider.now()
		}
		if flagCopy.UpdatedAt.IsZero() {
			flagCopy.UpdatedAt = flagCopy.CreatedAt
		}
		provider.flags[flag.Name] = flagCopy
	}

	return provider, nil
}

// IsEnabled returns the base enabled state of a flag.
func (m *MemoryProvider) IsEnabled(ctx context.Context, flagName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[flagName]
	if !exists {
		return false, ErrFlagNotFound
	}
	return flag.Enabled, nil
}

// GetFlag retrieves a copy of a flag by name.
func (m *MemoryProvider) GetFlag(ctx context.Context, flagName string) (*Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[flagName]
	if !exists {
		return nil, ErrFlagNotFound
	}
	return flag.Clone(), nil
}

// ListFlagNames returns the sorted names of all flags.
func (m *MemoryProvider) ListFlagNames(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.flags)), nil
}

// ListFlags returns all flags sorted by name, optionally filtered by tags.
func (m *MemoryProvider) ListFlags(ctx context.Context, tags ...string) ([]*Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Flag, 0, len(m.flags))
	for _, name := range slices.Sorted(maps.Keys(m.flags)) {
		flag := m.flags[name]
		if len(tags) > 0 && !slices.ContainsFunc(tags, func(tag string) bool {
			return slices.Contains(flag.Tags, tag)
		}) {
			continue
		}
		result = append(result, flag.Clone())
	}
	return result, nil
}

// CreateFlag creates a new flag.
func (m *MemoryProvider) CreateFlag(ctx context.Context, flag *Flag) error {
	if err := flag.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.flags[flag.Name]; exists {
		return errors.Join(ErrInvalidFlag, errors.New("flag already exists"))
	}

	now := m.now()
	flag.CreatedAt = now
	flag.UpdatedAt = now
	m.flags[flag.Name] = flag.Clone()

	return nil
}

// UpdateFlag replaces an existing flag.
func (m *MemoryProvider) UpdateFlag(ctx context.Context, flag *Flag) error {
	if err := flag.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.flags[flag.Name]
	if !exists {
		return ErrFlagNotFound
	}

	// Preserve original creation time
	flag.CreatedAt = existing.CreatedAt
	flag.UpdatedAt = m.now()
	m.flags[flag.Name] = flag.Clone()

	return nil
}

// DeleteFlag removes a flag.
func (m *MemoryProvider) DeleteFlag(ctx context.Context, flagName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.flags[flagName]; !exists {
		return ErrFlagNotFound
	}
	delete(m.flags, flagName)

	return nil
}

// Close releases any resources. For the memory provider, this is a no-op.
func (m *MemoryProvider) Close() error {
	return nil
}
