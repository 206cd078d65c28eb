package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlingo/transqa/internal/backtranslate"
	"github.com/medlingo/transqa/internal/model"
)

func TestNewValidationReport(t *testing.T) {
	t.Parallel()

	results := []model.Result{
		{ID: "a", Status: model.StatusPassed, Metrics: model.Metrics{ConfidenceScore: 0.9}},
		{ID: "b", Status: model.StatusPassed, Metrics: model.Metrics{ConfidenceScore: 0.8}},
		{ID: "c", Status: model.StatusWarning, Metrics: model.Metrics{ConfidenceScore: 0.6}},
		{ID: "d", Status: model.StatusFailed, Metrics: model.Metrics{ConfidenceScore: 0.3}},
	}
	r := NewValidationReport(results)

	assert.Equal(t, 4, r.Summary.Total)
	assert.Equal(t, 2, r.Summary.Passed)
	assert.Equal(t, 1, r.Summary.Warnings)
	assert.Equal(t, 1, r.Summary.Failed)
	assert.InDelta(t, 0.5, r.Summary.PassRate, 0.001)
	assert.InDelta(t, 0.65, r.Summary.AvgConfidence, 0.001)
	assert.Len(t, r.DetailedResults, 4)
}

func TestNewValidationReportEmpty(t *testing.T) {
	t.Parallel()

	r := NewValidationReport(nil)
	assert.Equal(t, 0, r.Summary.Total)
	assert.Equal(t, 0.0, r.Summary.PassRate)
	assert.Equal(t, 0.0, r.Summary.AvgConfidence)
}

func TestDetailBound(t *testing.T) {
	t.Parallel()

	results := make([]model.Result, 150)
	for i := range results {
		results[i] = model.Result{ID: fmt.Sprintf("r-%d", i), Status: model.StatusPassed}
	}
	r := NewValidationReport(results)

	assert.Equal(t, 150, r.Summary.Total, "summary counts everything")
	require.Len(t, r.DetailedResults, 100)
	assert.Equal(t, "r-50", r.DetailedResults[0].ID, "details keep the newest entries")
	assert.Equal(t, "r-149", r.DetailedResults[99].ID)
}

func TestValidationReportWriteJSON(t *testing.T) {
	t.Parallel()

	r := NewValidationReport([]model.Result{
		{ID: "a", Status: model.StatusPassed, Metrics: model.Metrics{ConfidenceScore: 0.9}},
	})
	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))

	var decoded ValidationReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.Summary.Total)
	require.Len(t, decoded.DetailedResults, 1)
	assert.Equal(t, "a", decoded.DetailedResults[0].ID)
}

func TestValidationReportWriteCSV(t *testing.T) {
	t.Parallel()

	r := NewValidationReport([]model.Result{
		{
			ID: "a", SourceLang: "en", TargetLang: "es", Status: model.StatusWarning,
			Issues:  []model.Issue{{Severity: model.SeverityWarning}},
			Metrics: model.Metrics{ConfidenceScore: 0.6},
		},
	})
	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "source_lang")
	assert.Contains(t, lines[1], "a,en,es,warning,0,1,0.6")
}

func TestNewBackTranslationReport(t *testing.T) {
	t.Parallel()

	results := []backtranslate.Result{
		{Method: backtranslate.MethodDirect, Confidence: 0.9, Acceptable: true},
		{Method: backtranslate.MethodPivot, Confidence: 0.5, Acceptable: false},
	}
	r := NewBackTranslationReport(results)

	assert.Equal(t, 2, r.Summary.Total)
	assert.Equal(t, 1, r.Summary.Acceptable)
	assert.InDelta(t, 0.7, r.Summary.AvgConfidence, 0.001)

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "direct")
	assert.Contains(t, lines[2], "pivot")
}

func TestNewAlertReport(t *testing.T) {
	t.Parallel()

	alerts := []model.Alert{
		{ID: "1", Severity: model.AlertError, Status: model.AlertActive},
		{ID: "2", Severity: model.AlertCritical, Status: model.AlertEscalated},
		{ID: "3", Severity: model.AlertWarning, Status: model.AlertResolved},
	}
	r := NewAlertReport(alerts)

	assert.Equal(t, 3, r.Summary.Total)
	assert.Equal(t, 2, r.Summary.Active, "active counts open and escalated")
	assert.Equal(t, 1, r.Summary.BySeverity["critical"])
	assert.Equal(t, 1, r.Summary.BySeverity["error"])
	assert.Equal(t, 1, r.Summary.BySeverity["warning"])

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))
	var decoded AlertReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Alerts, 3)
}
