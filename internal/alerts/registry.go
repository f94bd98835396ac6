package alerts

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultHistorySize bounds the resolved-alert ring buffer
	DefaultHistorySize = 500

	customRulePrefix = "custom:"
)

// Statistics summarizes the registry's alert counters
type Statistics struct {
	ActiveCount      int            `json:"active_count"`
	ActiveBySeverity map[string]int `json:"active_by_severity"`
	TotalBySeverity  map[string]int `json:"total_by_severity"`
	RulesConfigured  int            `json:"rules_configured"`
	RulesEnabled     int            `json:"rules_enabled"`
}

// HealthSummary is the alert-driven view of overall system health
type HealthSummary struct {
	OverallStatus     string         `json:"overall_status"`
	ActiveByComponent map[string]int `json:"active_by_component"`
	CriticalAlerts    []Alert        `json:"critical_alerts"`
}

// Registry owns the alert lifecycle: the active-alert map (at most one
// open alert per rule), a bounded history ring, per-rule creation
// cooldowns and running severity counters.
type Registry struct {
	mu          sync.Mutex
	logger      *slog.Logger
	rules       *RuleSet
	active      map[string]*Alert // keyed by rule id; at most one open alert per rule
	byID        map[string]*Alert
	history     []*Alert
	historySize int
	lastCreated map[string]time.Time
	totals      map[Severity]int
}

// NewRegistry creates a registry bound to the given rule set
func NewRegistry(rules *RuleSet, historySize int, logger *slog.Logger) *Registry {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:      logger,
		rules:       rules,
		active:      make(map[string]*Alert),
		byID:        make(map[string]*Alert),
		history:     make([]*Alert, 0, historySize),
		historySize: historySize,
		lastCreated: make(map[string]time.Time),
		totals:      make(map[Severity]int),
	}
}

// OpenForRule returns a copy of the rule's open alert, if any
func (r *Registry) OpenForRule(ruleID string) (Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.active[ruleID]
	if !ok {
		return Alert{}, false
	}
	return *alert, true
}

// InCooldown reports whether a new alert for the rule is suppressed by
// the cooldown window since the rule's last alert creation. Cooldown
// gates creation only, never in-place updates.
func (r *Registry) InCooldown(ruleID string, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.lastCreated[ruleID]
	return ok && time.Since(last) < cooldown
}

// CreateFromRule creates a new ACTIVE alert for a rule breach, records
// the creation time for cooldown and appends the alert to history.
// Notification dispatch is the caller's responsibility, after this
// returns, so no sink runs under the registry lock.
func (r *Registry) CreateFromRule(rule Rule, value float64) Alert {
	now := time.Now()
	alert := &Alert{
		ID:        uuid.NewString(),
		RuleID:    rule.ID,
		Severity:  rule.Severity,
		Title:     humanizeMetric(rule.Metric) + " Alert",
		Message:   formatMessage(rule, value),
		Timestamp: now,
		Status:    StatusActive,
		Source:    "rule-engine",
		Tags:      rule.Tags,
		Threshold: rule.Threshold,
		Value:     value,
	}

	r.mu.Lock()
	r.active[rule.ID] = alert
	r.byID[alert.ID] = alert
	r.lastCreated[rule.ID] = now
	r.appendHistory(alert)
	r.totals[alert.Severity]++
	r.mu.Unlock()

	r.logger.Warn("alert created",
		"alert_id", alert.ID,
		"rule_id", rule.ID,
		"severity", alert.Severity.String(),
		"value", value,
		"threshold", rule.Threshold)

	return *alert
}

// Refresh updates the open alert's current value and timestamp in
// place. It never creates a new alert and cooldown does not apply.
func (r *Registry) Refresh(ruleID string, value float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.active[ruleID]
	if !ok {
		return false
	}
	alert.Value = value
	alert.Timestamp = time.Now()
	return true
}

// ResolveRule transitions the rule's open alert to RESOLVED and drops
// it from the active map. Returns the resolved alert copy, if any.
func (r *Registry) ResolveRule(ruleID string) (Alert, bool) {
	r.mu.Lock()
	alert, ok := r.active[ruleID]
	if !ok {
		r.mu.Unlock()
		return Alert{}, false
	}
	now := time.Now()
	alert.Status = StatusResolved
	alert.ResolvedAt = &now
	delete(r.active, ruleID)
	resolved := *alert
	r.mu.Unlock()

	r.logger.Info("alert resolved", "alert_id", resolved.ID, "rule_id", ruleID)
	return resolved, true
}

// Acknowledge sets the alert to ACKNOWLEDGED. Acknowledging twice is a
// successful no-op; false means the id is unknown or already resolved.
func (r *Registry) Acknowledge(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.byID[id]
	if !ok || alert.Status == StatusResolved {
		return false
	}
	if alert.Status == StatusAcknowledged {
		return true
	}
	now := time.Now()
	alert.Status = StatusAcknowledged
	alert.AcknowledgedAt = &now
	alert.SilencedUntil = nil
	return true
}

// Silence suppresses the alert until now+duration. The evaluator
// reverts it to ACTIVE once the silence window expires.
func (r *Registry) Silence(id string, duration time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.byID[id]
	if !ok || alert.Status == StatusResolved {
		return false
	}
	until := time.Now().Add(duration)
	alert.Status = StatusSilenced
	alert.SilencedUntil = &until
	return true
}

// ReviveExpiredSilences flips SILENCED alerts whose window has passed
// back to ACTIVE. Called from the evaluator loop; never requires
// external intervention.
func (r *Registry) ReviveExpiredSilences(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	revived := 0
	for _, alert := range r.active {
		if alert.Status == StatusSilenced && alert.SilencedUntil != nil && now.After(*alert.SilencedUntil) {
			alert.Status = StatusActive
			alert.SilencedUntil = nil
			revived++
		}
	}
	return revived
}

// CreateCustom registers a manually triggered alert that bypasses rule
// evaluation entirely.
func (r *Registry) CreateCustom(title, message string, severity Severity, tags map[string]string) Alert {
	now := time.Now()
	alert := &Alert{
		ID:        uuid.NewString(),
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: now,
		Status:    StatusActive,
		Source:    "manual",
		Tags:      tags,
	}
	alert.RuleID = customRulePrefix + alert.ID

	r.mu.Lock()
	r.active[alert.RuleID] = alert
	r.byID[alert.ID] = alert
	r.appendHistory(alert)
	r.totals[severity]++
	r.mu.Unlock()

	r.logger.Warn("custom alert created", "alert_id", alert.ID, "severity", severity.String(), "title", title)
	return *alert
}

// Resolve transitions any open alert to RESOLVED by alert id.
// Used for manually created alerts, which no rule ever clears.
func (r *Registry) Resolve(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.byID[id]
	if !ok || alert.Status == StatusResolved {
		return false
	}
	now := time.Now()
	alert.Status = StatusResolved
	alert.ResolvedAt = &now
	delete(r.active, alert.RuleID)
	return true
}

// ListActive returns copies of all open alerts
func (r *Registry) ListActive() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Alert, 0, len(r.active))
	for _, alert := range r.active {
		out = append(out, *alert)
	}
	return out
}

// ListHistory returns up to limit alerts, most recent first.
// A non-positive limit returns the whole retained history.
func (r *Registry) ListHistory(limit int) []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Alert, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, *r.history[i])
	}
	return out
}

// Statistics returns the registry's alert counters
func (r *Registry) Statistics() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Statistics{
		ActiveCount:      len(r.active),
		ActiveBySeverity: make(map[string]int),
		TotalBySeverity:  make(map[string]int),
	}
	for _, alert := range r.active {
		stats.ActiveBySeverity[alert.Severity.String()]++
	}
	for severity, count := range r.totals {
		stats.TotalBySeverity[severity.String()] = count
	}
	if r.rules != nil {
		stats.RulesConfigured, stats.RulesEnabled = r.rules.Counts()
	}
	return stats
}

// HealthSummary derives overall status from the highest severity among
// open alerts ("healthy" when none), groups active counts by each
// alert's component tag and lists critical and emergency alerts.
func (r *Registry) HealthSummary() HealthSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := HealthSummary{
		OverallStatus:     "healthy",
		ActiveByComponent: make(map[string]int),
		CriticalAlerts:    []Alert{},
	}

	highest := Severity(-1)
	for _, alert := range r.active {
		if alert.Severity > highest {
			highest = alert.Severity
		}
		component := alert.Tags["component"]
		if component == "" {
			component = "unknown"
		}
		summary.ActiveByComponent[component]++
		if alert.Severity >= SeverityCritical {
			summary.CriticalAlerts = append(summary.CriticalAlerts, *alert)
		}
	}
	if highest >= 0 {
		summary.OverallStatus = highest.String()
	}
	return summary
}

// appendHistory adds an alert to the bounded history ring; caller must
// hold r.mu. History entries share pointers with live alerts so later
// transitions are visible in history reads.
func (r *Registry) appendHistory(alert *Alert) {
	r.history = append(r.history, alert)
	if len(r.history) > r.historySize {
		evicted := r.history[:len(r.history)-r.historySize]
		for _, old := range evicted {
			if old.Status == StatusResolved {
				delete(r.byID, old.ID)
			}
		}
		r.history = r.history[len(r.history)-r.historySize:]
	}
}
