package collectors

import (
	"context"
	"log/slog"
	"time"

	"github.com/atlet99/pulsemon/internal/cache"
	"github.com/atlet99/pulsemon/internal/errors"
	"github.com/atlet99/pulsemon/internal/metrics"
)

const (
	cacheHitRateWarning = 0.5

	// cacheMinSamples avoids flagging a cold cache before it has seen
	// enough lookups for the hit rate to mean anything
	cacheMinSamples = 100
)

// CacheCollector samples the cache server statistics
type CacheCollector struct {
	base
	store *metrics.Store
	cache cache.Cache
}

// NewCacheCollector creates a cache statistics collector
func NewCacheCollector(store *metrics.Store, c cache.Cache, interval time.Duration, logger *slog.Logger) *CacheCollector {
	cc := &CacheCollector{
		base:  newBase("cache", interval, logger),
		store: store,
		cache: c,
	}
	cc.sample = cc.collectSample

	store.Register(metrics.Definition{Name: "cache_hit_rate", Kind: metrics.KindGauge, Description: "Cache hit ratio since start"})
	store.Register(metrics.Definition{Name: "cache_size", Kind: metrics.KindGauge})
	store.Register(metrics.Definition{Name: "cache_evictions", Kind: metrics.KindGauge})
	return cc
}

func (c *CacheCollector) collectSample(ctx context.Context) error {
	if c.cache == nil {
		return errors.New(errors.ErrCodeSamplingFailed, "no cache configured")
	}

	// GetStats is in-memory for the bundled cache but the contract
	// allows remote backends, so the read is bounded by the sample
	// context.
	type result struct{ stats cache.Stats }
	ch := make(chan result, 1)
	go func() {
		ch <- result{stats: c.cache.GetStats()}
	}()

	var stats cache.Stats
	select {
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeSamplingTimeout, "sample cache stats", ctx.Err())
	case r := <-ch:
		stats = r.stats
	}

	c.store.SetGauge("cache_hit_rate", stats.HitRate, nil)
	c.store.SetGauge("cache_size", float64(stats.Size), nil)
	c.store.SetGauge("cache_evictions", float64(stats.Evictions), nil)

	if stats.Hits+stats.Misses >= cacheMinSamples && stats.HitRate < cacheHitRateWarning {
		c.setStatus(StatusWarning)
		c.raiseAlert("cache_hit_rate_low", "cache hit rate below warning threshold")
	} else {
		c.setStatus(StatusHealthy)
	}
	return nil
}

// CheckHealth samples on demand; a missing cache yields status unknown
func (c *CacheCollector) CheckHealth(ctx context.Context) HealthReport {
	if err := c.collectSample(ctx); err != nil {
		c.mu.Lock()
		c.status = StatusUnknown
		c.lastError = err
		c.mu.Unlock()
		return c.report(nil)
	}

	m := map[string]float64{}
	for _, name := range []string{"cache_hit_rate", "cache_size", "cache_evictions"} {
		if v, ok := c.store.Latest(name); ok {
			m[name] = v
		}
	}
	return c.report(m)
}
