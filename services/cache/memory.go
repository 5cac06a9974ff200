package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryService is the in-process fallback used when no memcache address is
// configured. Blocks then only apply to the current process.
type MemoryService struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemoryService creates an empty in-process cache
func NewMemoryService() *MemoryService {
	return &MemoryService{entries: make(map[string]entry)}
}

// Get retrieves a value, treating expired entries as misses
func (m *MemoryService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value with an expiration time
func (m *MemoryService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = time.Now().Add(expiration)
	}
	m.entries[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

// Delete removes a value
func (m *MemoryService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
