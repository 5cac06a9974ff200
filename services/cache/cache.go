package cache

import (
	"time"
)

// DefaultBlockTime is how long a host stays blocked after rate limiting
const DefaultBlockTime = 10 * time.Minute

// Service is a small TTL cache. The fetcher uses it to share per-host
// rate-limit blocks between crawler processes.
type Service interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
