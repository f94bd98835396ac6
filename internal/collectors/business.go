package collectors

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/atlet99/pulsemon/internal/metrics"
)

// Business error-ratio thresholds, in percent of requests this interval
const (
	businessErrorWarningPct  = 5.0
	businessErrorCriticalPct = 15.0
)

// BusinessCollector accumulates application-level counters pushed by
// business code between ticks and flushes totals plus per-interval
// rates into the store. The hot-path record methods are lock-free.
type BusinessCollector struct {
	base
	store *metrics.Store

	requests     atomic.Int64
	transactions atomic.Int64
	failures     atomic.Int64
	activeUsers  atomic.Int64
}

// NewBusinessCollector creates a business counter collector
func NewBusinessCollector(store *metrics.Store, interval time.Duration, logger *slog.Logger) *BusinessCollector {
	c := &BusinessCollector{
		base:  newBase("business", interval, logger),
		store: store,
	}
	c.sample = c.flush

	store.Register(metrics.Definition{Name: "business_requests_total", Kind: metrics.KindBusiness, Description: "Requests handled by business code"})
	store.Register(metrics.Definition{Name: "business_transactions_total", Kind: metrics.KindBusiness, Description: "Completed business transactions"})
	store.Register(metrics.Definition{Name: "business_errors_total", Kind: metrics.KindBusiness, Description: "Failed business operations"})
	store.Register(metrics.Definition{Name: "business_error_rate", Kind: metrics.KindGauge, Unit: "percent"})
	store.Register(metrics.Definition{Name: "business_active_users", Kind: metrics.KindGauge})
	return c
}

// RecordRequest counts one handled request
func (c *BusinessCollector) RecordRequest() { c.requests.Add(1) }

// RecordTransaction counts one completed transaction
func (c *BusinessCollector) RecordTransaction() { c.transactions.Add(1) }

// RecordFailure counts one failed business operation
func (c *BusinessCollector) RecordFailure() { c.failures.Add(1) }

// SetActiveUsers records the current active user count
func (c *BusinessCollector) SetActiveUsers(n int64) { c.activeUsers.Store(n) }

// flush drains the interval counters into the store and derives status
// from the error ratio of this interval.
func (c *BusinessCollector) flush(_ context.Context) error {
	requests := c.requests.Swap(0)
	transactions := c.transactions.Swap(0)
	failures := c.failures.Swap(0)
	users := c.activeUsers.Load()

	if requests > 0 {
		c.store.Increment("business_requests_total", float64(requests), nil)
	}
	if transactions > 0 {
		c.store.Increment("business_transactions_total", float64(transactions), nil)
	}
	if failures > 0 {
		c.store.Increment("business_errors_total", float64(failures), nil)
	}
	c.store.SetGauge("business_active_users", float64(users), nil)

	errorRate := 0.0
	if requests > 0 {
		errorRate = float64(failures) / float64(requests) * 100
	}
	c.store.SetGauge("business_error_rate", errorRate, nil)

	switch {
	case errorRate > businessErrorCriticalPct:
		c.setStatus(StatusCritical)
		c.raiseAlert("business_error_rate_critical",
			"business error rate above critical threshold")
	case errorRate > businessErrorWarningPct:
		c.setStatus(StatusWarning)
		c.raiseAlert("business_error_rate_high",
			"business error rate above warning threshold")
	default:
		c.setStatus(StatusHealthy)
	}
	return nil
}

// CheckHealth reports the status derived from the last flush. It does
// not flush on demand: draining the interval counters outside the loop
// would skew the per-interval rates.
func (c *BusinessCollector) CheckHealth(_ context.Context) HealthReport {
	m := map[string]float64{
		"active_users": float64(c.activeUsers.Load()),
	}
	if total, ok := c.store.Latest("business_requests_total"); ok {
		m["requests_total"] = total
	}
	if rate, ok := c.store.Latest("business_error_rate"); ok {
		m["error_rate"] = rate
	}
	return c.report(m)
}
