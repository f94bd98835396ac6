package collectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlet99/pulsemon/internal/cache"
	"github.com/atlet99/pulsemon/internal/metrics"
)

type stubPoolProvider struct {
	stats PoolStats
	err   error
}

func (p *stubPoolProvider) Stats(_ context.Context) (PoolStats, error) {
	return p.stats, p.err
}

func TestBusinessCollector_Flush(t *testing.T) {
	store := metrics.NewStore(100)
	c := NewBusinessCollector(store, time.Minute, nil)

	for i := 0; i < 10; i++ {
		c.RecordRequest()
	}
	c.RecordTransaction()
	c.SetActiveUsers(42)

	require.NoError(t, c.flush(context.Background()))

	total, ok := store.Latest("business_requests_total")
	require.True(t, ok)
	assert.Equal(t, 10.0, total)

	users, _ := store.Latest("business_active_users")
	assert.Equal(t, 42.0, users)

	rate, _ := store.Latest("business_error_rate")
	assert.Equal(t, 0.0, rate)
	assert.Equal(t, StatusHealthy, c.CheckHealth(context.Background()).Status)
}

func TestBusinessCollector_CountersResetPerInterval(t *testing.T) {
	store := metrics.NewStore(100)
	c := NewBusinessCollector(store, time.Minute, nil)

	c.RecordRequest()
	c.RecordRequest()
	require.NoError(t, c.flush(context.Background()))
	require.NoError(t, c.flush(context.Background()))

	total, _ := store.Latest("business_requests_total")
	assert.Equal(t, 2.0, total, "empty interval must not re-add counts")
}

func TestBusinessCollector_ErrorRateStatus(t *testing.T) {
	store := metrics.NewStore(100)
	c := NewBusinessCollector(store, time.Minute, nil)

	for i := 0; i < 10; i++ {
		c.RecordRequest()
	}
	c.RecordFailure()
	c.RecordFailure() // 20% error rate

	require.NoError(t, c.flush(context.Background()))

	report := c.CheckHealth(context.Background())
	assert.Equal(t, StatusCritical, report.Status)
	require.NotEmpty(t, report.Alerts)
	assert.Equal(t, "business_error_rate_critical", report.Alerts[0].Type)
}

func TestPerformanceCollector_Sample(t *testing.T) {
	store := metrics.NewStore(100)
	c := NewPerformanceCollector(store, time.Minute, nil)

	c.ObserveRequest(100*time.Millisecond, 200)
	c.ObserveRequest(300*time.Millisecond, 200)
	c.ObserveRequest(200*time.Millisecond, 500)

	require.NoError(t, c.collectSample(context.Background()))

	mem, ok := store.Latest("memory_usage_mb")
	require.True(t, ok)
	assert.Greater(t, mem, 0.0)

	goroutines, _ := store.Latest("goroutine_count")
	assert.Greater(t, goroutines, 0.0)

	latency, _ := store.Latest("http_response_time_ms")
	assert.Equal(t, 200.0, latency)

	errorRate, _ := store.Latest("http_error_rate")
	assert.InDelta(t, 100.0/3.0, errorRate, 0.01)
}

func TestPerformanceCollector_NoTrafficInterval(t *testing.T) {
	store := metrics.NewStore(100)
	c := NewPerformanceCollector(store, time.Minute, nil)

	require.NoError(t, c.collectSample(context.Background()))

	errorRate, ok := store.Latest("http_error_rate")
	require.True(t, ok)
	assert.Equal(t, 0.0, errorRate)

	_, ok = store.Latest("http_response_time_ms")
	assert.False(t, ok, "no latency sample without requests")
}

func TestPoolCollector_Utilization(t *testing.T) {
	store := metrics.NewStore(100)
	provider := &stubPoolProvider{stats: PoolStats{Open: 20, InUse: 19, Idle: 1, MaxOpen: 20}}
	c := NewPoolCollector(store, provider, time.Minute, nil)

	report := c.CheckHealth(context.Background())

	assert.Equal(t, StatusCritical, report.Status)
	assert.Equal(t, 95.0, report.Metrics["db_pool_utilization"])
	require.NotEmpty(t, report.Alerts)
	assert.Equal(t, "pool_utilization_critical", report.Alerts[0].Type)

	util, _ := store.Latest("db_pool_utilization")
	assert.Equal(t, 95.0, util)
}

func TestPoolCollector_WarningBand(t *testing.T) {
	store := metrics.NewStore(100)
	provider := &stubPoolProvider{stats: PoolStats{InUse: 16, MaxOpen: 20}}
	c := NewPoolCollector(store, provider, time.Minute, nil)

	report := c.CheckHealth(context.Background())
	assert.Equal(t, StatusWarning, report.Status)
	assert.Equal(t, 80.0, report.Metrics["db_pool_utilization"])
}

func TestPoolCollector_SamplingFailure(t *testing.T) {
	store := metrics.NewStore(100)
	provider := &stubPoolProvider{err: errors.New("connection refused")}
	c := NewPoolCollector(store, provider, time.Minute, nil)

	report := c.CheckHealth(context.Background())

	assert.Equal(t, StatusUnknown, report.Status)
	assert.Contains(t, report.Error, "connection refused")
}

func TestPoolCollector_NilProvider(t *testing.T) {
	store := metrics.NewStore(100)
	c := NewPoolCollector(store, nil, time.Minute, nil)

	report := c.CheckHealth(context.Background())
	assert.Equal(t, StatusUnknown, report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestPoolCollector_AlertCooldown(t *testing.T) {
	store := metrics.NewStore(100)
	provider := &stubPoolProvider{stats: PoolStats{InUse: 19, MaxOpen: 20}}
	c := NewPoolCollector(store, provider, time.Minute, nil)

	first := c.CheckHealth(context.Background())
	second := c.CheckHealth(context.Background())

	assert.Len(t, first.Alerts, 1)
	assert.Len(t, second.Alerts, 1, "same alert type is suppressed inside the cooldown window")
}

func TestCacheCollector_Sample(t *testing.T) {
	store := metrics.NewStore(100)
	mc := cache.NewMemoryCache(10)
	defer mc.Close()

	mc.Set("k", "v", time.Minute)
	mc.Get("k")
	mc.Get("k")

	c := NewCacheCollector(store, mc, time.Minute, nil)
	report := c.CheckHealth(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, 1.0, report.Metrics["cache_hit_rate"])
	assert.Equal(t, 1.0, report.Metrics["cache_size"])
}

func TestCacheCollector_NilCache(t *testing.T) {
	store := metrics.NewStore(100)
	c := NewCacheCollector(store, nil, time.Minute, nil)

	report := c.CheckHealth(context.Background())
	assert.Equal(t, StatusUnknown, report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestCollector_StartStop(t *testing.T) {
	store := metrics.NewStore(100)
	provider := &stubPoolProvider{stats: PoolStats{InUse: 2, MaxOpen: 20}}
	c := NewPoolCollector(store, provider, 10*time.Millisecond, nil)

	c.Start()
	assert.Eventually(t, func() bool {
		_, ok := store.Latest("db_pool_utilization")
		return ok
	}, time.Second, 5*time.Millisecond)
	c.Stop()
}

func TestBase_EventRingBounded(t *testing.T) {
	store := metrics.NewStore(100)
	c := NewBusinessCollector(store, time.Minute, nil)

	for i := 0; i < maxRecentEvents+20; i++ {
		c.addEvent("noise", "tick")
	}
	report := c.CheckHealth(context.Background())
	assert.Len(t, report.Events, maxRecentEvents)
}
