package model

import "time"

// Comparison selects how a metric sample is compared to a threshold.
type Comparison string

const (
	CompareGreater Comparison = ">"
	CompareLess    Comparison = "<"
	CompareEqual   Comparison = "="
)

// Breached reports whether value trips the threshold under the
// comparison. Unknown comparisons never breach.
func (c Comparison) Breached(value, threshold float64) bool {
	switch c {
	case CompareGreater:
		return value > threshold
	case CompareLess:
		return value < threshold
	case CompareEqual:
		return value == threshold
	default:
		return false
	}
}

// AlertSeverity ranks alert importance.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertError    AlertSeverity = "error"
	AlertCritical AlertSeverity = "critical"
)

var alertSeverityRank = map[AlertSeverity]int{
	AlertInfo:     0,
	AlertWarning:  1,
	AlertError:    2,
	AlertCritical: 3,
}

// AtLeast reports whether s is at least as severe as other.
func (s AlertSeverity) AtLeast(other AlertSeverity) bool {
	return alertSeverityRank[s] >= alertSeverityRank[other]
}

// AlertStatus tracks an alert through its lifecycle.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertSuppressed   AlertStatus = "suppressed"
	AlertEscalated    AlertStatus = "escalated"
)

// Threshold defines one watch rule over a streaming metric.
type Threshold struct {
	MetricName       string        `json:"metric_name" yaml:"metric_name"`
	Value            float64       `json:"value" yaml:"value"`
	Comparison       Comparison    `json:"comparison" yaml:"comparison"`
	AlertType        string        `json:"alert_type" yaml:"alert_type"`
	Severity         AlertSeverity `json:"severity" yaml:"severity"`
	Description      string        `json:"description,omitempty" yaml:"description,omitempty"`
	OccurrenceCount  int           `json:"occurrence_count,omitempty" yaml:"occurrence_count,omitempty"`
	Window           time.Duration `json:"window,omitempty" yaml:"window,omitempty"`
	Cooldown         time.Duration `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	AutoResolveAfter time.Duration `json:"auto_resolve_after,omitempty" yaml:"auto_resolve_after,omitempty"`
	EscalateAfter    time.Duration `json:"escalate_after,omitempty" yaml:"escalate_after,omitempty"`
	Channels         []string      `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// Key identifies the cooldown bucket for a threshold: alerts of the same
// metric and type share one cooldown window.
func (t Threshold) Key() string {
	return t.MetricName + "|" + t.AlertType
}

// Alert is a live instance of a breached threshold.
type Alert struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Severity        AlertSeverity  `json:"severity"`
	Status          AlertStatus    `json:"status"`
	Message         string         `json:"message"`
	MetricName      string         `json:"metric_name"`
	MetricValue     float64        `json:"metric_value"`
	ThresholdValue  float64        `json:"threshold_value"`
	TriggeredAt     time.Time      `json:"triggered_at"`
	AcknowledgedAt  *time.Time     `json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	EscalatedAt     *time.Time     `json:"escalated_at,omitempty"`
	SuppressedUntil *time.Time     `json:"suppressed_until,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
}
