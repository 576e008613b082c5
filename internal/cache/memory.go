package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds a MemoryStore built with a non-positive size.
const DefaultMaxEntries = 512

// MemoryStore is a bounded LRU kept in process memory.
type MemoryStore struct {
	items *lru.Cache[string, []byte]
}

// NewMemoryStore keeps at most size entries; size <= 0 means DefaultMaxEntries.
func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = DefaultMaxEntries
	}
	// lru.New only fails for a non-positive size.
	items, _ := lru.New[string, []byte](size)
	return &MemoryStore{items: items}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.items.Add(key, append([]byte(nil), value...))
	return nil
}

func (m *MemoryStore) Len() int { return m.items.Len() }

func (m *MemoryStore) Close() error {
	m.items.Purge()
	return nil
}
