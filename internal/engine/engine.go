// Package engine wires the metric store, rule engine, alert registry,
// notification sinks and collectors into one explicitly constructed
// instance with a Start/Stop lifecycle. Nothing in here is a process
// singleton, so tests can run isolated engines side by side.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/atlet99/pulsemon/internal/alerts"
	"github.com/atlet99/pulsemon/internal/cache"
	"github.com/atlet99/pulsemon/internal/collectors"
	"github.com/atlet99/pulsemon/internal/config"
	"github.com/atlet99/pulsemon/internal/metrics"
)

const (
	appCacheSize = 1000

	tracerShutdownTimeout = 5 * time.Second
)

// OverallStatus is the engine-wide health status exposed to callers
type OverallStatus string

const (
	OverallHealthy   OverallStatus = "healthy"
	OverallDegraded  OverallStatus = "degraded"
	OverallUnhealthy OverallStatus = "unhealthy"
	OverallUnknown   OverallStatus = "unknown"
)

// Health is the aggregated engine health view: the collectors' local
// reports plus the registry's alert-driven summary.
type Health struct {
	Status     OverallStatus                      `json:"status"`
	Timestamp  time.Time                          `json:"timestamp"`
	Collectors map[string]collectors.HealthReport `json:"collectors"`
	Alerts     alerts.HealthSummary               `json:"alerts"`
}

// System owns every engine component and their timer loops
type System struct {
	cfg    *config.Config
	logger *slog.Logger

	store      *metrics.Store
	mirror     *metrics.Mirror
	rules      *alerts.RuleSet
	registry   *alerts.Registry
	dispatcher *alerts.Dispatcher
	evaluator  *alerts.Evaluator
	appCache   *cache.MemoryCache
	tracer     *Tracer

	business    *collectors.BusinessCollector
	performance *collectors.PerformanceCollector
	pool        *collectors.PoolCollector
	cacheStats  *collectors.CacheCollector
	collectors  []collectors.Collector

	ctx       context.Context
	cancel    context.CancelFunc
	sweepDone chan struct{}
}

// New constructs a fully wired engine. poolProvider may be nil, in
// which case the pool collector reports status unknown until one is
// attached.
func New(cfg *config.Config, poolProvider collectors.PoolStatsProvider, logger *slog.Logger) (*System, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := metrics.NewStore(cfg.MetricCapacity)
	mirror := metrics.NewMirror()
	store.SetMirror(mirror)

	appCache := cache.NewMemoryCache(appCacheSize)

	rules := alerts.NewDefaultRuleSet()
	registry := alerts.NewRegistry(rules, cfg.AlertHistorySize, logger)

	var tracer *Tracer
	if cfg.TracingEnabled {
		var err error
		tracer, err = NewTracer(&TracingConfig{
			ServiceName:    "pulsemon",
			ServiceVersion: "dev",
			Environment:    cfg.Environment,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SampleRate:     cfg.TraceSampleRate,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	dispatcher := alerts.NewDispatcher(logger)
	addSink := func(sink alerts.Sink) {
		if tracer != nil {
			sink = newTracingSink(tracer, sink)
		}
		dispatcher.Add(sink)
	}
	addSink(alerts.NewLogSink(logger))
	if cfg.CacheMirrorEnabled {
		addSink(alerts.NewCacheSink(appCache, cfg.CacheMirrorTTL))
	}
	if cfg.WebhookURL != "" {
		addSink(alerts.NewWebhookSink(cfg.WebhookURL, cfg.WebhookType, cfg.WebhookRatePerMin, logger))
	}

	evaluator := alerts.NewEvaluator(store, rules, registry, dispatcher, cfg.EvaluationInterval, logger)

	business := collectors.NewBusinessCollector(store, cfg.CollectInterval, logger)
	performance := collectors.NewPerformanceCollector(store, cfg.CollectInterval, logger)
	pool := collectors.NewPoolCollector(store, poolProvider, cfg.CollectInterval, logger)
	cacheStats := collectors.NewCacheCollector(store, appCache, cfg.CollectInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())

	return &System{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		mirror:      mirror,
		rules:       rules,
		registry:    registry,
		dispatcher:  dispatcher,
		evaluator:   evaluator,
		appCache:    appCache,
		tracer:      tracer,
		business:    business,
		performance: performance,
		pool:        pool,
		cacheStats:  cacheStats,
		collectors:  []collectors.Collector{business, performance, pool, cacheStats},
		ctx:         ctx,
		cancel:      cancel,
		sweepDone:   make(chan struct{}),
	}, nil
}

// Start launches the collector loops, the evaluator and the sweep loop
func (s *System) Start() {
	s.logger.Info("starting engine",
		"metric_capacity", s.cfg.MetricCapacity,
		"evaluation_interval", s.cfg.EvaluationInterval,
		"collect_interval", s.cfg.CollectInterval)

	for _, c := range s.collectors {
		c.Start()
	}
	s.evaluator.Start()
	go s.sweepLoop()
}

// Stop shuts everything down and waits for the loops to exit
func (s *System) Stop() {
	s.logger.Info("stopping engine")

	s.cancel()
	<-s.sweepDone

	s.evaluator.Stop()
	for _, c := range s.collectors {
		c.Stop()
	}
	s.appCache.Close()

	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer cancel()
		if err := s.tracer.Shutdown(ctx); err != nil {
			s.logger.Error("tracer shutdown failed", "error", err)
		}
	}
}

// sweepLoop drops metric values older than the configured max age
func (s *System) sweepLoop() {
	defer close(s.sweepDone)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if removed := s.store.Sweep(s.cfg.MetricMaxAge); removed > 0 {
				s.logger.Debug("metric sweep completed", "removed", removed)
			}
		}
	}
}

// Store returns the metric store for ingestion and query callers
func (s *System) Store() *metrics.Store { return s.store }

// Mirror returns the Prometheus mirror
func (s *System) Mirror() *metrics.Mirror { return s.mirror }

// Rules returns the rule set
func (s *System) Rules() *alerts.RuleSet { return s.rules }

// Registry returns the alert registry
func (s *System) Registry() *alerts.Registry { return s.registry }

// Business returns the business counter collector for instrumentation
func (s *System) Business() *collectors.BusinessCollector { return s.business }

// Performance returns the performance collector for middleware wiring
func (s *System) Performance() *collectors.PerformanceCollector { return s.performance }

// Cache returns the engine's cache instance
func (s *System) Cache() cache.Cache { return s.appCache }

// Health aggregates collector reports and the alert summary. The
// overall status distinguishes "no data yet" (unknown) from "actively
// broken" (unhealthy).
func (s *System) Health(ctx context.Context) Health {
	h := Health{
		Status:     OverallHealthy,
		Timestamp:  time.Now().UTC(),
		Collectors: make(map[string]collectors.HealthReport, len(s.collectors)),
		Alerts:     s.registry.HealthSummary(),
	}

	for _, c := range s.collectors {
		report := c.CheckHealth(ctx)
		h.Collectors[c.Name()] = report
		h.Status = worstStatus(h.Status, collectorOverall(report.Status))
	}

	switch s.registry.HealthSummary().OverallStatus {
	case "critical", "emergency":
		h.Status = worstStatus(h.Status, OverallUnhealthy)
	case "warning":
		h.Status = worstStatus(h.Status, OverallDegraded)
	}
	return h
}

func collectorOverall(s collectors.Status) OverallStatus {
	switch s {
	case collectors.StatusCritical:
		return OverallUnhealthy
	case collectors.StatusWarning:
		return OverallDegraded
	case collectors.StatusUnknown:
		return OverallUnknown
	default:
		return OverallHealthy
	}
}

// worstStatus merges two statuses, unhealthy > degraded > unknown > healthy
func worstStatus(a, b OverallStatus) OverallStatus {
	rank := map[OverallStatus]int{
		OverallHealthy:   0,
		OverallUnknown:   1,
		OverallDegraded:  2,
		OverallUnhealthy: 3,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
