package alerts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlet99/pulsemon/internal/metrics"
)

// captureSink records every alert it receives
type captureSink struct {
	mu     sync.Mutex
	alerts []Alert
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Handle(_ context.Context, alert Alert) error {
	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.mu.Unlock()
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func (s *captureSink) last() Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alerts[len(s.alerts)-1]
}

type evaluatorFixture struct {
	store     *metrics.Store
	rules     *RuleSet
	registry  *Registry
	sink      *captureSink
	evaluator *Evaluator
}

func newEvaluatorFixture(t *testing.T, rules ...Rule) *evaluatorFixture {
	t.Helper()

	f := &evaluatorFixture{
		store: metrics.NewStore(100),
		rules: NewRuleSet(),
		sink:  &captureSink{},
	}
	for _, rule := range rules {
		require.NoError(t, f.rules.Add(rule))
	}
	f.registry = NewRegistry(f.rules, 50, nil)
	dispatcher := NewDispatcher(nil, f.sink)
	f.evaluator = NewEvaluator(f.store, f.rules, f.registry, dispatcher, time.Second, nil)
	return f
}

func poolRule(cooldown time.Duration) Rule {
	return Rule{
		ID:        "pool-utilization-high",
		Name:      "Connection Pool Utilization High",
		Metric:    "db_pool_utilization",
		Condition: ConditionGreaterThan,
		Threshold: 90,
		Severity:  SeverityCritical,
		Cooldown:  cooldown,
		Enabled:   true,
		Tags:      map[string]string{"component": "database"},
	}
}

func TestEvaluator_CreatesAlertOnBreach(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(5*time.Minute))
	f.store.SetGauge("db_pool_utilization", 95, nil)

	f.evaluator.Tick(context.Background())

	require.Equal(t, 1, f.sink.count())
	alert := f.sink.last()
	assert.Equal(t, "pool-utilization-high", alert.RuleID)
	assert.Equal(t, SeverityCritical, alert.Severity)
	assert.Equal(t, 95.0, alert.Value)
	assert.Equal(t, 90.0, alert.Threshold)

	active := f.registry.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, StatusActive, active[0].Status)
}

func TestEvaluator_DedupRefreshesOpenAlert(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(0))
	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(context.Background())

	f.store.SetGauge("db_pool_utilization", 98, nil)
	f.evaluator.Tick(context.Background())

	assert.Equal(t, 1, f.sink.count(), "breach while an alert is open must not dispatch again")
	active := f.registry.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, 98.0, active[0].Value, "open alert carries the latest breaching value")
}

func TestEvaluator_ResolvesWhenConditionClears(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(0))
	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(context.Background())
	require.Len(t, f.registry.ListActive(), 1)

	f.store.SetGauge("db_pool_utilization", 70, nil)
	f.evaluator.Tick(context.Background())

	assert.Empty(t, f.registry.ListActive())
	history := f.registry.ListHistory(0)
	require.Len(t, history, 1)
	assert.Equal(t, StatusResolved, history[0].Status)
	require.NotNil(t, history[0].ResolvedAt)
}

func TestEvaluator_CooldownGatesCreationOnly(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(time.Hour))
	ctx := context.Background()

	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(ctx)
	require.Equal(t, 1, f.sink.count())

	// Updates to the open alert are never gated by cooldown
	f.store.SetGauge("db_pool_utilization", 99, nil)
	f.evaluator.Tick(ctx)
	active := f.registry.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, 99.0, active[0].Value)

	// Resolve, then breach again inside the window: creation is suppressed
	f.store.SetGauge("db_pool_utilization", 50, nil)
	f.evaluator.Tick(ctx)
	require.Empty(t, f.registry.ListActive())

	f.store.SetGauge("db_pool_utilization", 96, nil)
	f.evaluator.Tick(ctx)
	assert.Equal(t, 1, f.sink.count(), "cooldown suppresses the second creation")
	assert.Empty(t, f.registry.ListActive())
}

func TestEvaluator_ZeroCooldownRefires(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(0))
	ctx := context.Background()

	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(ctx)
	f.store.SetGauge("db_pool_utilization", 50, nil)
	f.evaluator.Tick(ctx)
	f.store.SetGauge("db_pool_utilization", 96, nil)
	f.evaluator.Tick(ctx)

	assert.Equal(t, 2, f.sink.count())
	history := f.registry.ListHistory(0)
	assert.Len(t, history, 2, "each breach episode is a distinct alert")
}

func TestEvaluator_SilenceExpiryRevives(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(0))
	ctx := context.Background()

	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(ctx)
	alert := f.sink.last()

	require.True(t, f.registry.Silence(alert.ID, 20*time.Millisecond))
	active := f.registry.ListActive()
	require.Len(t, active, 1)
	require.Equal(t, StatusSilenced, active[0].Status)

	time.Sleep(30 * time.Millisecond)
	f.evaluator.Tick(ctx)

	active = f.registry.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, StatusActive, active[0].Status)
	assert.Nil(t, active[0].SilencedUntil)
	assert.Equal(t, 1, f.sink.count(), "revival is a state flip, not a new alert")
}

func TestEvaluator_DurationGating(t *testing.T) {
	rule := poolRule(0)
	rule.Duration = 30 * time.Millisecond
	f := newEvaluatorFixture(t, rule)
	ctx := context.Background()

	f.store.SetGauge("db_pool_utilization", 95, nil)

	// First breaching tick starts the clock, no alert yet
	f.evaluator.Tick(ctx)
	assert.Equal(t, 0, f.sink.count())

	// Still inside the hold window
	f.evaluator.Tick(ctx)
	assert.Equal(t, 0, f.sink.count())

	time.Sleep(40 * time.Millisecond)
	f.evaluator.Tick(ctx)
	assert.Equal(t, 1, f.sink.count())
}

func TestEvaluator_DurationResetOnRecovery(t *testing.T) {
	rule := poolRule(0)
	rule.Duration = 30 * time.Millisecond
	f := newEvaluatorFixture(t, rule)
	ctx := context.Background()

	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(ctx)

	// Condition clears before the hold elapses: the clock resets
	f.store.SetGauge("db_pool_utilization", 50, nil)
	f.evaluator.Tick(ctx)

	time.Sleep(40 * time.Millisecond)
	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(ctx)
	assert.Equal(t, 0, f.sink.count(), "a fresh breach restarts the hold window")
}

func TestEvaluator_SkipsRuleWithoutData(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(0))

	f.evaluator.Tick(context.Background())

	assert.Equal(t, 0, f.sink.count())
	assert.Empty(t, f.registry.ListActive())
}

func TestEvaluator_SkipsDisabledRules(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(0))
	require.True(t, f.rules.SetEnabled("pool-utilization-high", false))

	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(context.Background())

	assert.Equal(t, 0, f.sink.count())
}

func TestEvaluator_StartStop(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(0))
	f.evaluator.interval = 10 * time.Millisecond

	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Start()

	assert.Eventually(t, func() bool {
		return f.sink.count() == 1
	}, time.Second, 5*time.Millisecond)

	f.evaluator.Stop()
}

// Full lifecycle: breach fires a critical alert, an operator acknowledges
// it, recovery resolves it into history.
func TestEvaluator_PoolUtilizationLifecycle(t *testing.T) {
	f := newEvaluatorFixture(t, poolRule(5*time.Minute))
	ctx := context.Background()

	f.store.Register(metrics.Definition{
		Name: "db_pool_utilization",
		Kind: metrics.KindGauge,
		Unit: "percent",
	})
	f.store.SetGauge("db_pool_utilization", 95, nil)
	f.evaluator.Tick(ctx)

	active := f.registry.ListActive()
	require.Len(t, active, 1)
	alert := active[0]
	assert.Equal(t, SeverityCritical, alert.Severity)
	assert.Equal(t, "Db Pool Utilization Alert", alert.Title)

	require.True(t, f.registry.Acknowledge(alert.ID))
	open, _ := f.registry.OpenForRule("pool-utilization-high")
	assert.Equal(t, StatusAcknowledged, open.Status)

	// Acknowledged alerts still track the breaching value
	f.store.SetGauge("db_pool_utilization", 97, nil)
	f.evaluator.Tick(ctx)
	open, _ = f.registry.OpenForRule("pool-utilization-high")
	assert.Equal(t, StatusAcknowledged, open.Status)
	assert.Equal(t, 97.0, open.Value)

	f.store.SetGauge("db_pool_utilization", 60, nil)
	f.evaluator.Tick(ctx)

	assert.Empty(t, f.registry.ListActive())
	history := f.registry.ListHistory(0)
	require.Len(t, history, 1)
	assert.Equal(t, StatusResolved, history[0].Status)
	assert.Equal(t, 1, f.sink.count(), "one notification for the whole episode")

	summary := f.registry.HealthSummary()
	assert.Equal(t, "healthy", summary.OverallStatus)
}
