package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetRate retrieves a cached FX rate entry.
	GetRate(ctx context.Context, tenantID string, currency string) (*RateEntry, error)

	// SetRate caches an FX rate entry. The reference TTL is ~22 hours so
	// a day's evaluations see one consistent rate.
	SetRate(ctx context.Context, tenantID string, currency string, entry *RateEntry, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for duplicate-claim detection (evaluations per booking ref in a window).
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RateEntry holds a cached exchange rate against EUR.
type RateEntry struct {
	Currency  string  `json:"ccy"`
	Rate      float64 `json:"rate"` // units of currency per EUR
	FetchedAt string  `json:"fetchedAt"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
