package types

import (
	"time"
)

type ResponseCache interface {
	LifecycleManager
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration) error
	Delete(key string) error
	// InvalidatePrefix removes every entry whose key starts with prefix.
	// A write to a resource path invalidates that path's prefix so the next
	// read cannot observe a value stored before the write.
	InvalidatePrefix(prefix string) error
	// Sweep purges all expired entries and returns how many were removed.
	Sweep() int
}

type ResponseCacheCreator func(config interface{}) (ResponseCache, error)

type CacheEntry struct {
	Key       string        `json:"key"`
	Value     interface{}   `json:"value"`
	TTL       time.Duration `json:"ttl"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
