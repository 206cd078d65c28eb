package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityWorse(t *testing.T) {
	t.Parallel()

	assert.True(t, SeverityFailed.Worse(SeverityWarning))
	assert.True(t, SeverityWarning.Worse(SeverityPassed))
	assert.True(t, SeveritySkipped.Worse(SeverityPassed))
	assert.False(t, SeverityPassed.Worse(SeverityFailed))
	assert.False(t, SeverityFailed.Worse(SeverityFailed))
}

func TestStatusWorse(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusFailed.Worse(StatusWarning))
	assert.True(t, StatusWarning.Worse(StatusPassed))
	assert.False(t, StatusPassed.Worse(StatusPassed))
}

func TestCountBySeverity(t *testing.T) {
	t.Parallel()

	issues := []Issue{
		{Severity: SeverityFailed},
		{Severity: SeverityFailed},
		{Severity: SeverityWarning},
		{Severity: SeverityPassed},
	}
	counts := CountBySeverity(issues)
	assert.Equal(t, 2, counts[SeverityFailed])
	assert.Equal(t, 1, counts[SeverityWarning])
	assert.Equal(t, 1, counts[SeverityPassed])
}

func TestResultCounts(t *testing.T) {
	t.Parallel()

	r := Result{Issues: []Issue{
		{Severity: SeverityFailed},
		{Severity: SeverityWarning},
		{Severity: SeverityWarning},
	}}
	assert.Equal(t, 1, r.ErrorCount())
	assert.Equal(t, 2, r.WarningCount())
}

func TestContentKey(t *testing.T) {
	t.Parallel()

	k1 := ContentKey("en", "es", "hello", "hola")
	k2 := ContentKey("en", "es", "hello", "hola")
	assert.Equal(t, k1, k2, "identical content must produce identical keys")

	assert.NotEqual(t, k1, ContentKey("en", "fr", "hello", "hola"))
	assert.NotEqual(t, k1, ContentKey("en", "es", "hello!", "hola"))
	assert.NotEqual(t, k1, ContentKey("en", "es", "hello", "hola!"))
}

func TestComparisonBreached(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cmp       Comparison
		value     float64
		threshold float64
		want      bool
	}{
		{"greater breached", CompareGreater, 1.5, 1.0, true},
		{"greater not breached", CompareGreater, 0.5, 1.0, false},
		{"less breached", CompareLess, 0.4, 0.5, true},
		{"less not breached", CompareLess, 0.6, 0.5, false},
		{"equal breached", CompareEqual, 1.0, 1.0, true},
		{"unknown never breaches", Comparison("!="), 2.0, 1.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cmp.Breached(tt.value, tt.threshold))
		})
	}
}

func TestPriorityOrdering(t *testing.T) {
	t.Parallel()

	assert.True(t, PriorityCritical.MoreUrgent(PriorityHigh))
	assert.True(t, PriorityHigh.MoreUrgent(PriorityMedium))
	assert.True(t, PriorityMedium.MoreUrgent(PriorityLow))
	assert.True(t, PriorityLow.MoreUrgent(PriorityEducational))
	assert.False(t, PriorityLow.MoreUrgent(PriorityCritical))
	assert.True(t, PriorityCritical.MoreUrgent(Priority("bogus")), "unknown priorities rank last")
}

func TestCanReview(t *testing.T) {
	t.Parallel()

	p := ReviewerProfile{
		Active:          true,
		Languages:       []string{"en", "ES"},
		Specializations: []string{"cardiology"},
	}

	assert.True(t, p.CanReview("en", "es", ""))
	assert.True(t, p.CanReview("en", "es", "Cardiology"), "specialization match is case-insensitive")
	assert.False(t, p.CanReview("en", "fr", ""), "unqualified target language")
	assert.False(t, p.CanReview("en", "es", "oncology"), "missing specialization")

	p.Active = false
	assert.False(t, p.CanReview("en", "es", ""), "inactive reviewers never qualify")
}

func TestAlertSeverityAtLeast(t *testing.T) {
	t.Parallel()

	assert.True(t, AlertCritical.AtLeast(AlertError))
	assert.True(t, AlertWarning.AtLeast(AlertWarning))
	assert.False(t, AlertInfo.AtLeast(AlertWarning))
}

func TestThresholdKey(t *testing.T) {
	t.Parallel()

	th := Threshold{MetricName: "error_rate", AlertType: "high_error_rate"}
	assert.Equal(t, "error_rate|high_error_rate", th.Key())
}
