package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value    []byte
	expireAt time.Time
}

func (m memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && now.After(m.expireAt)
}

// Memory is an in-process Store. Expired entries are dropped lazily on read.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]memoryItem
	clock func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]memoryItem), clock: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	item, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if item.expired(m.clock()) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return append([]byte(nil), item.value...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expireAt = m.clock().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = item
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
