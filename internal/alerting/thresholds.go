package alerting

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/medlingo/transqa/internal/model"
)

// thresholdDoc is the YAML schema for a threshold file. Durations are
// strings in Go syntax ("30s", "5m").
type thresholdDoc struct {
	Thresholds []thresholdEntry `yaml:"thresholds"`
}

type thresholdEntry struct {
	MetricName       string              `yaml:"metric_name"`
	Value            float64             `yaml:"value"`
	Comparison       model.Comparison    `yaml:"comparison"`
	AlertType        string              `yaml:"alert_type"`
	Severity         model.AlertSeverity `yaml:"severity"`
	Description      string              `yaml:"description"`
	OccurrenceCount  int                 `yaml:"occurrence_count"`
	Window           string              `yaml:"window"`
	Cooldown         string              `yaml:"cooldown"`
	AutoResolveAfter string              `yaml:"auto_resolve_after"`
	EscalateAfter    string              `yaml:"escalate_after"`
	Channels         []string            `yaml:"channels"`
}

// LoadThresholds reads threshold definitions from a YAML file.
func LoadThresholds(path string) ([]model.Threshold, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "alerting: read thresholds %s", path)
	}
	var doc thresholdDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrapf(err, "alerting: parse thresholds %s", path)
	}

	out := make([]model.Threshold, 0, len(doc.Thresholds))
	for i, e := range doc.Thresholds {
		if e.MetricName == "" || e.Comparison == "" {
			return nil, eris.Errorf("alerting: threshold %d missing metric_name or comparison", i)
		}
		t := model.Threshold{
			MetricName:      e.MetricName,
			Value:           e.Value,
			Comparison:      e.Comparison,
			AlertType:       e.AlertType,
			Severity:        e.Severity,
			Description:     e.Description,
			OccurrenceCount: e.OccurrenceCount,
			Channels:        e.Channels,
		}
		if t.AlertType == "" {
			t.AlertType = "threshold_breach"
		}
		if t.Severity == "" {
			t.Severity = model.AlertWarning
		}
		for _, d := range []struct {
			raw string
			dst *time.Duration
		}{
			{e.Window, &t.Window},
			{e.Cooldown, &t.Cooldown},
			{e.AutoResolveAfter, &t.AutoResolveAfter},
			{e.EscalateAfter, &t.EscalateAfter},
		} {
			if d.raw == "" {
				continue
			}
			parsed, err := time.ParseDuration(d.raw)
			if err != nil {
				return nil, eris.Wrapf(err, "alerting: threshold %d duration %q", i, d.raw)
			}
			*d.dst = parsed
		}
		out = append(out, t)
	}
	return out, nil
}

// DefaultThresholds returns the built-in watch rules used when no
// threshold file is configured.
func DefaultThresholds() []model.Threshold {
	return []model.Threshold{
		{
			MetricName:  "confidence_score",
			Value:       0.5,
			Comparison:  model.CompareLess,
			AlertType:   "low_confidence",
			Severity:    model.AlertError,
			Description: "translation confidence below acceptable floor",
			Cooldown:    5 * time.Minute,
		},
		{
			MetricName:      "error_rate",
			Value:           0.1,
			Comparison:      model.CompareGreater,
			AlertType:       "high_error_rate",
			Severity:        model.AlertCritical,
			Description:     "validation failure rate above 10%",
			OccurrenceCount: 3,
			Cooldown:        10 * time.Minute,
			EscalateAfter:   30 * time.Minute,
		},
		{
			MetricName:  "warning_rate",
			Value:       0.3,
			Comparison:  model.CompareGreater,
			AlertType:   "high_warning_rate",
			Severity:    model.AlertWarning,
			Description: "validation warning rate above 30%",
			Cooldown:    10 * time.Minute,
		},
		{
			MetricName:  "validation_time_ms",
			Value:       5000,
			Comparison:  model.CompareGreater,
			AlertType:   "slow_validation",
			Severity:    model.AlertWarning,
			Description: "validation latency above 5s",
			Cooldown:    5 * time.Minute,
		},
	}
}
