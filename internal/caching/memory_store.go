package caching

import (
	"context"
	"sync"

	goCache "github.com/patrickmn/go-cache"
)

type memorySlotStore struct {
	cache    *goCache.Cache
	maxBytes int64
	mu       sync.Mutex
}

// NewMemorySlotStore keeps values in process memory. maxBytes bounds the
// total size of all values; 0 disables the quota.
func NewMemorySlotStore(maxBytes int64) SlotStore {
	return &memorySlotStore{
		cache:    goCache.New(goCache.NoExpiration, 0),
		maxBytes: maxBytes,
	}
}

func (m *memorySlotStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true, nil
}

func (m *memorySlotStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBytes > 0 {
		used := m.usedBytesExcluding(key)
		if used+int64(len(value)) > m.maxBytes {
			return ErrQuotaExceeded
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.cache.Set(key, stored, goCache.NoExpiration)
	return nil
}

func (m *memorySlotStore) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *memorySlotStore) Ping(_ context.Context) error {
	return nil
}

func (m *memorySlotStore) usedBytesExcluding(key string) int64 {
	var used int64
	for k, item := range m.cache.Items() {
		if k == key {
			continue
		}
		if b, ok := item.Object.([]byte); ok {
			used += int64(len(b))
		}
	}
	return used
}
