package alerts

import (
	"context"
	"time"

	"github.com/atlet99/pulsemon/internal/cache"
)

const cacheKeyPrefix = "alert:"

// CacheSink mirrors created alerts into a key-value cache so dashboard
// surfaces can poll them without touching the engine. The cache is a
// one-way mirror for read scaling, never the source of truth, and the
// engine works correctly with the sink disabled.
type CacheSink struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewCacheSink creates a write-through cache sink
func NewCacheSink(c cache.Cache, ttl time.Duration) *CacheSink {
	return &CacheSink{cache: c, ttl: ttl}
}

// Name returns the sink identifier
func (s *CacheSink) Name() string { return "cache" }

// Handle writes the alert under its id and refreshes the latest entry
func (s *CacheSink) Handle(_ context.Context, alert Alert) error {
	s.cache.Set(cacheKeyPrefix+alert.ID, alert, s.ttl)
	s.cache.Set(cacheKeyPrefix+"latest", alert, s.ttl)
	return nil
}
