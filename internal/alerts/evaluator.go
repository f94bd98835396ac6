package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atlet99/pulsemon/internal/metrics"
)

// DefaultEvaluationInterval is the rule engine tick cadence
const DefaultEvaluationInterval = 60 * time.Second

// Evaluator runs the rule engine on a fixed tick, independent of
// collector cadence. Each tick reads one latest-value snapshot per rule
// from the store, then drives the alert lifecycle through the registry;
// notifications are dispatched after the registry mutation completes,
// never under the registry lock.
type Evaluator struct {
	store      *metrics.Store
	rules      *RuleSet
	registry   *Registry
	dispatcher *Dispatcher
	logger     *slog.Logger
	interval   time.Duration

	mu          sync.Mutex
	breachStart map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEvaluator creates an evaluator over the given store and rule set
func NewEvaluator(store *metrics.Store, rules *RuleSet, registry *Registry,
	dispatcher *Dispatcher, interval time.Duration, logger *slog.Logger) *Evaluator {
	if interval <= 0 {
		interval = DefaultEvaluationInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Evaluator{
		store:       store,
		rules:       rules,
		registry:    registry,
		dispatcher:  dispatcher,
		logger:      logger,
		interval:    interval,
		breachStart: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start launches the evaluation loop
func (e *Evaluator) Start() {
	e.logger.Info("starting alert evaluator", "interval", e.interval)
	go e.loop()
}

// Stop cancels the loop and waits for it to exit
func (e *Evaluator) Stop() {
	e.cancel()
	<-e.done
}

func (e *Evaluator) loop() {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.Tick(e.ctx)
		}
	}
}

// Tick evaluates every enabled rule once. Exported so tests and manual
// triggers can drive the engine without waiting for the ticker.
func (e *Evaluator) Tick(ctx context.Context) {
	now := time.Now()

	if revived := e.registry.ReviveExpiredSilences(now); revived > 0 {
		e.logger.Info("silence windows expired", "revived", revived)
	}

	for _, rule := range e.rules.Enabled() {
		e.evaluateRule(ctx, rule, now)
	}
}

// evaluateRule applies one rule to the metric's latest value
func (e *Evaluator) evaluateRule(ctx context.Context, rule Rule, now time.Time) {
	value, ok := e.store.Latest(rule.Metric)
	if !ok {
		// No data yet: skip this rule this tick, no error surfaced
		e.logger.Debug("rule skipped, no metric data", "rule_id", rule.ID, "metric", rule.Metric)
		return
	}

	if !rule.Condition.Evaluate(value, rule.Threshold) {
		e.clearBreach(rule.ID)
		e.registry.ResolveRule(rule.ID)
		return
	}

	// Existing open alert: update value and timestamp in place.
	// Never a new alert, and cooldown does not apply to updates.
	if e.registry.Refresh(rule.ID, value) {
		return
	}

	// The condition must hold for the rule's duration before a new
	// alert fires; zero duration fires on the first breaching tick.
	if rule.Duration > 0 && !e.breachHeld(rule.ID, now, rule.Duration) {
		return
	}

	if e.registry.InCooldown(rule.ID, rule.Cooldown) {
		e.logger.Debug("alert suppressed by cooldown", "rule_id", rule.ID)
		return
	}

	alert := e.registry.CreateFromRule(rule, value)
	e.clearBreach(rule.ID)
	e.dispatcher.Dispatch(ctx, alert)
}

// breachHeld tracks when the rule's condition first became true and
// reports whether it has held continuously for at least duration.
func (e *Evaluator) breachHeld(ruleID string, now time.Time, duration time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	start, ok := e.breachStart[ruleID]
	if !ok {
		e.breachStart[ruleID] = now
		return false
	}
	return now.Sub(start) >= duration
}

func (e *Evaluator) clearBreach(ruleID string) {
	e.mu.Lock()
	delete(e.breachStart, ruleID)
	e.mu.Unlock()
}
