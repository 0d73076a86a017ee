package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

// expired reports whether more than ttl has elapsed; an entry is still served at
// exactly ttl.
func (e entry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.storedAt) > e.ttl
}

// MemoryStore is an in-process Store. Expired entries are removed lazily by Get,
// and the oldest entry is evicted when MaxEntries is reached.
type MemoryStore struct {
	mu         sync.Mutex
	data       map[string]entry
	prefix     string
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// WithMaxEntries bounds the number of stored entries; zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryStore) { m.maxEntries = n }
}

// NewMemoryStore creates an empty store namespacing keys with prefix.
func NewMemoryStore(prefix string, opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		data:   make(map[string]entry),
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) key(k string) string { return m.prefix + k }

// Get returns the value of key. An expired entry is deleted under the same lock
// that observed it.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(key)
	e, ok := m.data[k]
	if !ok {
		return nil, false, nil
	}
	if e.expired(m.now()) {
		delete(m.data, k)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl. A non-positive ttl never expires.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(key)
	if _, exists := m.data[k]; !exists && m.maxEntries > 0 && len(m.data) >= m.maxEntries {
		m.evictLocked()
	}
	m.data[k] = entry{value: value, storedAt: m.now(), ttl: ttl}
	return nil
}

// evictLocked drops every expired entry, or the oldest one when none has expired.
func (m *MemoryStore) evictLocked() {
	now := m.now()
	var oldestKey string
	var oldest time.Time
	removed := false
	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)
			removed = true
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	if !removed && oldestKey != "" {
		delete(m.data, oldestKey)
	}
}

// Remove deletes key.
func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, m.key(key))
	return nil
}

// Clear deletes every key of this store's namespace.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, m.prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
