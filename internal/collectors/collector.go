// Package collectors implements the periodic metric producers: business
// counters, runtime/HTTP performance, connection pool and cache server
// samplers. Each collector owns its own timer loop, writes observations
// into the metric store and derives a coarse local health status that is
// returned from on-demand health checks, separate from the rule engine.
package collectors

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultInterval is the collector sampling cadence
	DefaultInterval = 30 * time.Second

	// sampleTimeout bounds a single sampling pass
	sampleTimeout = 5 * time.Second

	// defaultAlertCooldown suppresses repeated ad-hoc alerts of the
	// same type within the window
	defaultAlertCooldown = 5 * time.Minute

	// maxRecentEvents bounds the per-collector event ring
	maxRecentEvents = 50
)

// Status is a collector's coarse local health status
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// Event is a timestamped collector-local occurrence: an ad-hoc alert or
// a notable sampling event.
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthReport is the on-demand health view of one collector. Alerts
// are the collector's ad-hoc threshold breaches; they are returned in
// health responses only and never persisted in the alert registry.
type HealthReport struct {
	Collector string             `json:"collector"`
	Status    Status             `json:"status"`
	Metrics   map[string]float64 `json:"metrics"`
	Alerts    []Event            `json:"alerts"`
	Events    []Event            `json:"events"`
	Error     string             `json:"error,omitempty"`
	CheckedAt time.Time          `json:"checked_at"`
}

// Collector is a periodic producer that samples a subsystem and writes
// metrics into the store.
type Collector interface {
	Name() string
	Start()
	Stop()
	CheckHealth(ctx context.Context) HealthReport
}

// base carries the shared collector machinery: the timer loop, the
// local status, the per-alert-type cooldown map and the bounded event
// ring. Embedding collectors set sample before Start.
type base struct {
	name     string
	logger   *slog.Logger
	interval time.Duration
	sample   func(ctx context.Context) error

	mu        sync.Mutex
	status    Status
	lastError error
	cooldowns map[string]time.Time
	alerts    []Event
	events    []Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newBase(name string, interval time.Duration, logger *slog.Logger) base {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return base{
		name:      name,
		logger:    logger,
		interval:  interval,
		status:    StatusUnknown,
		cooldowns: make(map[string]time.Time),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Name returns the collector identifier
func (b *base) Name() string { return b.name }

// Start launches the sampling loop. The first sample runs immediately
// so health checks have data before the first tick.
func (b *base) Start() {
	b.logger.Info("starting collector", "collector", b.name, "interval", b.interval)
	go b.loop()
}

// Stop cancels the loop and waits for it to exit
func (b *base) Stop() {
	b.cancel()
	<-b.done
}

func (b *base) loop() {
	defer close(b.done)

	b.collect()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.collect()
		}
	}
}

// collect runs one bounded sampling pass. A sampling failure flips the
// status to unknown and is logged; the loop always continues.
func (b *base) collect() {
	ctx, cancel := context.WithTimeout(b.ctx, sampleTimeout)
	defer cancel()

	if err := b.sample(ctx); err != nil {
		b.mu.Lock()
		b.status = StatusUnknown
		b.lastError = err
		b.mu.Unlock()

		b.logger.Warn("collector sampling failed", "collector", b.name, "error", err)
		b.addEvent("sampling_failed", err.Error())
		return
	}

	b.mu.Lock()
	b.lastError = nil
	b.mu.Unlock()
}

// setStatus records the status derived from the latest sample
func (b *base) setStatus(s Status) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}

// raiseAlert records an ad-hoc alert unless the same alert type fired
// within the cooldown window. Returns whether the alert was recorded.
func (b *base) raiseAlert(alertType, message string) bool {
	now := time.Now()

	b.mu.Lock()
	if last, ok := b.cooldowns[alertType]; ok && now.Sub(last) < defaultAlertCooldown {
		b.mu.Unlock()
		return false
	}
	b.cooldowns[alertType] = now
	event := Event{Type: alertType, Message: message, Timestamp: now}
	b.alerts = appendBounded(b.alerts, event)
	b.events = appendBounded(b.events, event)
	b.mu.Unlock()

	b.logger.Warn("collector alert", "collector", b.name, "type", alertType, "message", message)
	return true
}

// addEvent records a non-alert occurrence in the event ring
func (b *base) addEvent(eventType, message string) {
	b.mu.Lock()
	b.events = appendBounded(b.events, Event{Type: eventType, Message: message, Timestamp: time.Now()})
	b.mu.Unlock()
}

// report assembles the common part of a health report
func (b *base) report(metrics map[string]float64) HealthReport {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := HealthReport{
		Collector: b.name,
		Status:    b.status,
		Metrics:   metrics,
		Alerts:    append([]Event(nil), b.alerts...),
		Events:    append([]Event(nil), b.events...),
		CheckedAt: time.Now(),
	}
	if b.lastError != nil {
		out.Error = b.lastError.Error()
	}
	return out
}

func appendBounded(ring []Event, e Event) []Event {
	ring = append(ring, e)
	if len(ring) > maxRecentEvents {
		ring = ring[len(ring)-maxRecentEvents:]
	}
	return ring
}
