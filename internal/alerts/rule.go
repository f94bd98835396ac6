// Package alerts implements the declarative rule set, the evaluation
// loop and the alert lifecycle: deduplication, cooldown, silence and
// acknowledgement semantics over metrics from the in-process store.
package alerts

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/atlet99/pulsemon/internal/errors"
)

// conditionEpsilon is the tolerance used for eq/ne float comparisons
const conditionEpsilon = 1e-3

// Condition is a comparison operator applied to a metric's latest value
type Condition string

const (
	ConditionGreaterThan Condition = "gt"
	ConditionLessThan    Condition = "lt"
	ConditionEquals      Condition = "eq"
	ConditionNotEquals   Condition = "ne"
)

// Valid reports whether the condition operator is known
func (c Condition) Valid() bool {
	switch c {
	case ConditionGreaterThan, ConditionLessThan, ConditionEquals, ConditionNotEquals:
		return true
	default:
		return false
	}
}

// Evaluate applies the condition to value against threshold
func (c Condition) Evaluate(value, threshold float64) bool {
	switch c {
	case ConditionGreaterThan:
		return value > threshold
	case ConditionLessThan:
		return value < threshold
	case ConditionEquals:
		return math.Abs(value-threshold) < conditionEpsilon
	case ConditionNotEquals:
		return math.Abs(value-threshold) >= conditionEpsilon
	default:
		return false
	}
}

// Severity is the ordinal urgency level of an alert.
// Higher values are more urgent, so "overall status" is an ordinal max.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityEmergency
)

// String returns the lowercase severity name
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	case SeverityEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as its name
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a severity name
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity maps a severity name to its ordinal value
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	case "emergency":
		return SeverityEmergency, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", name)
	}
}

// Rule is a declarative condition over a metric's latest value
type Rule struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Metric    string            `json:"metric"`
	Condition Condition         `json:"condition"`
	Threshold float64           `json:"threshold"`
	Severity  Severity          `json:"severity"`
	Duration  time.Duration     `json:"duration"`
	Cooldown  time.Duration     `json:"cooldown"`
	Enabled   bool              `json:"enabled"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// equivalent reports whether two rules have identical behavior-relevant fields
func (r Rule) equivalent(other Rule) bool {
	return r.Name == other.Name &&
		r.Metric == other.Metric &&
		r.Condition == other.Condition &&
		r.Threshold == other.Threshold &&
		r.Severity == other.Severity &&
		r.Duration == other.Duration &&
		r.Cooldown == other.Cooldown
}

// RuleSet holds the static default rules plus rules added at runtime.
// Enabled is the only field mutated after a rule is added.
type RuleSet struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order []string
}

// NewRuleSet creates an empty rule set
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string]Rule)}
}

// NewDefaultRuleSet creates a rule set loaded with the default rules
func NewDefaultRuleSet() *RuleSet {
	rs := NewRuleSet()
	for _, rule := range DefaultRules() {
		// Default rules are statically valid
		_ = rs.Add(rule)
	}
	return rs
}

// DefaultRules returns the fixed startup rule set
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:        "high-error-rate",
			Name:      "High HTTP Error Rate",
			Metric:    "http_error_rate",
			Condition: ConditionGreaterThan,
			Threshold: 5.0,
			Severity:  SeverityWarning,
			Cooldown:  10 * time.Minute,
			Enabled:   true,
			Tags:      map[string]string{"component": "http"},
		},
		{
			ID:        "critical-error-rate",
			Name:      "Critical HTTP Error Rate",
			Metric:    "http_error_rate",
			Condition: ConditionGreaterThan,
			Threshold: 15.0,
			Severity:  SeverityCritical,
			Cooldown:  5 * time.Minute,
			Enabled:   true,
			Tags:      map[string]string{"component": "http"},
		},
		{
			ID:        "slow-responses",
			Name:      "Slow HTTP Responses",
			Metric:    "http_response_time_ms",
			Condition: ConditionGreaterThan,
			Threshold: 500,
			Severity:  SeverityWarning,
			Duration:  2 * time.Minute,
			Cooldown:  10 * time.Minute,
			Enabled:   true,
			Tags:      map[string]string{"component": "http"},
		},
		{
			ID:        "pool-utilization-high",
			Name:      "Connection Pool Utilization High",
			Metric:    "db_pool_utilization",
			Condition: ConditionGreaterThan,
			Threshold: 90,
			Severity:  SeverityCritical,
			Cooldown:  5 * time.Minute,
			Enabled:   true,
			Tags:      map[string]string{"component": "database"},
		},
		{
			ID:        "cache-hit-rate-low",
			Name:      "Cache Hit Rate Low",
			Metric:    "cache_hit_rate",
			Condition: ConditionLessThan,
			Threshold: 0.5,
			Severity:  SeverityWarning,
			Duration:  5 * time.Minute,
			Cooldown:  15 * time.Minute,
			Enabled:   true,
			Tags:      map[string]string{"component": "cache"},
		},
		{
			ID:        "memory-usage-critical",
			Name:      "Memory Usage Critical",
			Metric:    "memory_usage_mb",
			Condition: ConditionGreaterThan,
			Threshold: 600,
			Severity:  SeverityEmergency,
			Cooldown:  5 * time.Minute,
			Enabled:   true,
			Tags:      map[string]string{"component": "runtime"},
		},
	}
}

// Add registers a rule. Duplicate IDs with conflicting fields and
// unknown condition operators are rejected synchronously; re-adding an
// identical rule is a no-op.
func (rs *RuleSet) Add(rule Rule) error {
	if rule.ID == "" {
		return errors.New(errors.ErrCodeInvalidRule, "rule id must not be empty")
	}
	if rule.Metric == "" {
		return errors.Newf(errors.ErrCodeInvalidRule, "rule %q: metric name must not be empty", rule.ID)
	}
	if !rule.Condition.Valid() {
		return errors.Newf(errors.ErrCodeInvalidCondition, "rule %q: unknown condition operator %q", rule.ID, rule.Condition)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if existing, ok := rs.rules[rule.ID]; ok {
		if existing.equivalent(rule) {
			return nil
		}
		return errors.Newf(errors.ErrCodeDuplicateRule, "rule %q already registered with conflicting fields", rule.ID)
	}

	rs.rules[rule.ID] = rule
	rs.order = append(rs.order, rule.ID)
	return nil
}

// Remove deletes a rule by id and reports whether it existed
func (rs *RuleSet) Remove(id string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.rules[id]; !ok {
		return false
	}
	delete(rs.rules, id)
	for i, rid := range rs.order {
		if rid == id {
			rs.order = append(rs.order[:i], rs.order[i+1:]...)
			break
		}
	}
	return true
}

// SetEnabled toggles a rule and reports whether it existed
func (rs *RuleSet) SetEnabled(id string, enabled bool) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rule, ok := rs.rules[id]
	if !ok {
		return false
	}
	rule.Enabled = enabled
	rs.rules[id] = rule
	return true
}

// Get returns a rule by id
func (rs *RuleSet) Get(id string) (Rule, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rule, ok := rs.rules[id]
	return rule, ok
}

// List returns all rules in registration order
func (rs *RuleSet) List() []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]Rule, 0, len(rs.order))
	for _, id := range rs.order {
		out = append(out, rs.rules[id])
	}
	return out
}

// Enabled returns the enabled rules in registration order
func (rs *RuleSet) Enabled() []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]Rule, 0, len(rs.order))
	for _, id := range rs.order {
		if rule := rs.rules[id]; rule.Enabled {
			out = append(out, rule)
		}
	}
	return out
}

// Counts returns the number of configured and enabled rules
func (rs *RuleSet) Counts() (configured, enabled int) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	configured = len(rs.rules)
	for _, rule := range rs.rules {
		if rule.Enabled {
			enabled++
		}
	}
	return configured, enabled
}
