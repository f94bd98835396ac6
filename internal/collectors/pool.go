package collectors

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/atlet99/pulsemon/internal/errors"
	"github.com/atlet99/pulsemon/internal/metrics"
)

// Pool utilization thresholds, in percent of max open connections
const (
	poolWarningPct  = 75.0
	poolCriticalPct = 90.0
)

// PoolStats is a point-in-time snapshot of a connection pool
type PoolStats struct {
	Open         int           `json:"open"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	MaxOpen      int           `json:"max_open"`
	WaitCount    int64         `json:"wait_count"`
	WaitDuration time.Duration `json:"wait_duration"`
}

// PoolStatsProvider abstracts the sampled pool so tests and non-SQL
// pools can plug in.
type PoolStatsProvider interface {
	Stats(ctx context.Context) (PoolStats, error)
}

// DBPoolProvider adapts *sql.DB statistics to PoolStatsProvider
type DBPoolProvider struct {
	db *sql.DB
}

// NewDBPoolProvider wraps a database handle
func NewDBPoolProvider(db *sql.DB) *DBPoolProvider {
	return &DBPoolProvider{db: db}
}

// Stats reads the pool counters from the database handle
func (p *DBPoolProvider) Stats(_ context.Context) (PoolStats, error) {
	if p.db == nil {
		return PoolStats{}, errors.New(errors.ErrCodeSamplingFailed, "database handle is nil")
	}
	s := p.db.Stats()
	return PoolStats{
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		MaxOpen:      s.MaxOpenConnections,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}, nil
}

// PoolCollector samples a connection pool and derives utilization
type PoolCollector struct {
	base
	store    *metrics.Store
	provider PoolStatsProvider
}

// NewPoolCollector creates a connection pool collector
func NewPoolCollector(store *metrics.Store, provider PoolStatsProvider, interval time.Duration, logger *slog.Logger) *PoolCollector {
	c := &PoolCollector{
		base:     newBase("pool", interval, logger),
		store:    store,
		provider: provider,
	}
	c.sample = c.collectSample

	store.Register(metrics.Definition{Name: "db_pool_utilization", Kind: metrics.KindGauge, Unit: "percent", Description: "In-use share of max open connections"})
	store.Register(metrics.Definition{Name: "db_pool_in_use", Kind: metrics.KindGauge})
	store.Register(metrics.Definition{Name: "db_pool_idle", Kind: metrics.KindGauge})
	store.Register(metrics.Definition{Name: "db_pool_wait_count", Kind: metrics.KindGauge})
	return c
}

func (c *PoolCollector) collectSample(ctx context.Context) error {
	if c.provider == nil {
		return errors.New(errors.ErrCodeSamplingFailed, "no pool stats provider configured")
	}

	// Sampling happens before any store write, never under a store lock
	stats, err := c.provider.Stats(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSamplingFailed, "sample connection pool", err)
	}

	utilization := 0.0
	if stats.MaxOpen > 0 {
		utilization = float64(stats.InUse) / float64(stats.MaxOpen) * 100
	}

	c.store.SetGauge("db_pool_utilization", utilization, nil)
	c.store.SetGauge("db_pool_in_use", float64(stats.InUse), nil)
	c.store.SetGauge("db_pool_idle", float64(stats.Idle), nil)
	c.store.SetGauge("db_pool_wait_count", float64(stats.WaitCount), nil)

	switch {
	case utilization > poolCriticalPct:
		c.setStatus(StatusCritical)
		c.raiseAlert("pool_utilization_critical", "connection pool utilization above critical threshold")
	case utilization > poolWarningPct:
		c.setStatus(StatusWarning)
		c.raiseAlert("pool_utilization_high", "connection pool utilization above warning threshold")
	default:
		c.setStatus(StatusHealthy)
	}
	return nil
}

// CheckHealth samples on demand; provider failures yield status unknown
// with the error embedded in the report.
func (c *PoolCollector) CheckHealth(ctx context.Context) HealthReport {
	if err := c.collectSample(ctx); err != nil {
		c.mu.Lock()
		c.status = StatusUnknown
		c.lastError = err
		c.mu.Unlock()
		return c.report(nil)
	}

	m := map[string]float64{}
	for _, name := range []string{"db_pool_utilization", "db_pool_in_use", "db_pool_idle", "db_pool_wait_count"} {
		if v, ok := c.store.Latest(name); ok {
			m[name] = v
		}
	}
	return c.report(m)
}
