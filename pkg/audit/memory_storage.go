package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps entries in process memory. It implements Storage and Reader.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// StoreBatch appends entries.
func (m *MemoryStorage) StoreBatch(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

// Entries returns a copy of everything stored so far in insertion order.
func (m *MemoryStorage) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.entries)
}

// Len returns the number of stored entries.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Find returns entries matching the criteria ordered by timestamp.
func (m *MemoryStorage) Find(ctx context.Context, criteria Criteria) ([]Entry, error) {
	m.mu.RLock()
	result := make([]Entry, 0)
	for _, e := range m.entries {
		if criteria.Match(e) {
			result = append(result, e)
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(result, func(a, b Entry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if criteria.Limit > 0 && len(result) > criteria.Limit {
		result = result[:criteria.Limit]
	}
	return result, nil
}
