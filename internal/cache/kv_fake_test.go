package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errBackendDown = errors.New("connection refused")

// memoryKV is an in-memory KVStore. It keeps every value forever and records
// the ttl requested by each write; down makes every call fail.
type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls []time.Duration
	down bool
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return "", errBackendDown
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *memoryKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errBackendDown
	}
	m.data[key] = value
	m.ttls = append(m.ttls, ttl)
	return nil
}

func (m *memoryKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memoryKV) writeTTLs() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.ttls...)
}
