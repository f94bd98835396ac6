package collectors

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/atlet99/pulsemon/internal/metrics"
)

const (
	bytesPerMB = 1024 * 1024

	memoryWarningMB  = 450.0
	memoryCriticalMB = 600.0

	goroutineWarning = 1000

	httpErrorWarningPct  = 5.0
	httpErrorCriticalPct = 15.0
)

// PerformanceCollector samples Go runtime statistics and aggregates the
// HTTP request observations fed to it by server middleware.
type PerformanceCollector struct {
	base
	store *metrics.Store

	httpRequests   atomic.Int64
	httpErrors     atomic.Int64
	httpLatencySum atomic.Int64 // milliseconds

	lastGC atomic.Uint32
}

// NewPerformanceCollector creates a runtime and HTTP performance collector
func NewPerformanceCollector(store *metrics.Store, interval time.Duration, logger *slog.Logger) *PerformanceCollector {
	c := &PerformanceCollector{
		base:  newBase("performance", interval, logger),
		store: store,
	}
	c.sample = c.collectSample

	store.Register(metrics.Definition{Name: "memory_usage_mb", Kind: metrics.KindGauge, Unit: "megabytes", Description: "Heap memory currently allocated"})
	store.Register(metrics.Definition{Name: "goroutine_count", Kind: metrics.KindGauge})
	store.Register(metrics.Definition{Name: "gc_runs_total", Kind: metrics.KindCounter})
	store.Register(metrics.Definition{Name: "http_requests_total", Kind: metrics.KindCounter})
	store.Register(metrics.Definition{Name: "http_response_time_ms", Kind: metrics.KindTimer, Unit: "milliseconds", Description: "Average HTTP latency per interval"})
	store.Register(metrics.Definition{Name: "http_error_rate", Kind: metrics.KindGauge, Unit: "percent"})
	return c
}

// ObserveRequest records one finished HTTP request. Called from server
// middleware on the hot path, so only atomic adds.
func (c *PerformanceCollector) ObserveRequest(duration time.Duration, statusCode int) {
	c.httpRequests.Add(1)
	c.httpLatencySum.Add(duration.Milliseconds())
	if statusCode >= 400 {
		c.httpErrors.Add(1)
	}
}

func (c *PerformanceCollector) collectSample(_ context.Context) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memMB := float64(m.Alloc) / bytesPerMB
	goroutines := runtime.NumGoroutine()

	c.store.SetGauge("memory_usage_mb", memMB, nil)
	c.store.SetGauge("goroutine_count", float64(goroutines), nil)
	if last := c.lastGC.Load(); m.NumGC > last && c.lastGC.CompareAndSwap(last, m.NumGC) {
		c.store.Increment("gc_runs_total", float64(m.NumGC-last), nil)
	}

	requests := c.httpRequests.Swap(0)
	errors := c.httpErrors.Swap(0)
	latencySum := c.httpLatencySum.Swap(0)

	errorRate := 0.0
	avgLatency := 0.0
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
		avgLatency = float64(latencySum) / float64(requests)
		c.store.Increment("http_requests_total", float64(requests), nil)
		c.store.Record("http_response_time_ms", avgLatency, nil, nil)
	}
	c.store.SetGauge("http_error_rate", errorRate, nil)

	switch {
	case memMB > memoryCriticalMB || errorRate > httpErrorCriticalPct:
		c.setStatus(StatusCritical)
		if memMB > memoryCriticalMB {
			c.raiseAlert("memory_critical", "heap allocation above critical threshold")
		}
		if errorRate > httpErrorCriticalPct {
			c.raiseAlert("http_error_rate_critical", "HTTP error rate above critical threshold")
		}
	case memMB > memoryWarningMB || errorRate > httpErrorWarningPct || goroutines > goroutineWarning:
		c.setStatus(StatusWarning)
		if goroutines > goroutineWarning {
			c.raiseAlert("goroutine_count_high", "goroutine count above warning threshold")
		}
	default:
		c.setStatus(StatusHealthy)
	}
	return nil
}

// CheckHealth samples on demand and reports runtime metrics
func (c *PerformanceCollector) CheckHealth(ctx context.Context) HealthReport {
	if err := c.collectSample(ctx); err != nil {
		c.setStatus(StatusUnknown)
	}

	m := map[string]float64{}
	for _, name := range []string{"memory_usage_mb", "goroutine_count", "http_error_rate", "http_response_time_ms"} {
		if v, ok := c.store.Latest(name); ok {
			m[name] = v
		}
	}
	return c.report(m)
}
