package alerts

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the lifecycle state of an alert
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusSilenced     Status = "SILENCED"
	StatusResolved     Status = "RESOLVED"
)

// Alert is a stateful record of an ongoing or past rule breach.
// RESOLVED is terminal: a fresh breach creates a new alert instance.
type Alert struct {
	ID             string            `json:"id"`
	RuleID         string            `json:"rule_id"`
	Severity       Severity          `json:"severity"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         Status            `json:"status"`
	Source         string            `json:"source"`
	Tags           map[string]string `json:"tags,omitempty"`
	Threshold      float64           `json:"threshold"`
	Value          float64           `json:"value"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	SilencedUntil  *time.Time        `json:"silenced_until,omitempty"`
}

// IsOpen reports whether the alert is in a non-terminal state
func (a *Alert) IsOpen() bool {
	return a.Status != StatusResolved
}

var metricTitleCaser = cases.Title(language.English)

// humanizeMetric turns a metric name like "db_pool_utilization" into
// "Db Pool Utilization" for alert titles.
func humanizeMetric(name string) string {
	return metricTitleCaser.String(strings.ReplaceAll(name, "_", " "))
}

// formatMessage builds the alert message for a rule breach
func formatMessage(rule Rule, value float64) string {
	return fmt.Sprintf("%s: %s %s %.2f (current value %.2f)",
		rule.Name, rule.Metric, rule.Condition, rule.Threshold, value)
}
