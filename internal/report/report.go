// Package report renders validation, back-translation and alert
// summaries as JSON or CSV. Detail arrays are bounded to keep output
// size predictable.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/medlingo/transqa/internal/backtranslate"
	"github.com/medlingo/transqa/internal/model"
)

// maxDetails bounds every detailed-results array.
const maxDetails = 100

// ValidationSummary aggregates a set of validation results.
type ValidationSummary struct {
	Total         int       `json:"total"`
	Passed        int       `json:"passed"`
	Warnings      int       `json:"warnings"`
	Failed        int       `json:"failed"`
	PassRate      float64   `json:"pass_rate"`
	AvgConfidence float64   `json:"avg_confidence"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// ValidationReport is the export document for validation results.
type ValidationReport struct {
	Summary         ValidationSummary `json:"summary"`
	DetailedResults []model.Result    `json:"detailed_results"`
}

// NewValidationReport builds a report over results, keeping only the
// last 100 in the detail array.
func NewValidationReport(results []model.Result) *ValidationReport {
	r := &ValidationReport{
		Summary: ValidationSummary{
			Total:       len(results),
			GeneratedAt: time.Now().UTC(),
		},
	}
	var confSum float64
	for _, res := range results {
		switch res.Status {
		case model.StatusPassed:
			r.Summary.Passed++
		case model.StatusWarning:
			r.Summary.Warnings++
		case model.StatusFailed:
			r.Summary.Failed++
		}
		confSum += res.Metrics.ConfidenceScore
	}
	if len(results) > 0 {
		r.Summary.PassRate = float64(r.Summary.Passed) / float64(len(results))
		r.Summary.AvgConfidence = confSum / float64(len(results))
	}
	r.DetailedResults = tail(results)
	return r
}

// WriteJSON renders the report as indented JSON.
func (r *ValidationReport) WriteJSON(w io.Writer) error {
	return writeJSON(w, r)
}

// validationRow is the flat CSV projection of one result.
type validationRow struct {
	ID         string  `csv:"id"`
	SourceLang string  `csv:"source_lang"`
	TargetLang string  `csv:"target_lang"`
	Status     string  `csv:"status"`
	Errors     int     `csv:"errors"`
	Warnings   int     `csv:"warnings"`
	Confidence float64 `csv:"confidence"`
	CreatedAt  string  `csv:"created_at"`
}

// WriteCSV renders the detailed results as CSV rows.
func (r *ValidationReport) WriteCSV(w io.Writer) error {
	rows := make([]validationRow, 0, len(r.DetailedResults))
	for _, res := range r.DetailedResults {
		rows = append(rows, validationRow{
			ID:         res.ID,
			SourceLang: res.SourceLang,
			TargetLang: res.TargetLang,
			Status:     string(res.Status),
			Errors:     res.ErrorCount(),
			Warnings:   res.WarningCount(),
			Confidence: res.Metrics.ConfidenceScore,
			CreatedAt:  res.CreatedAt.Format(time.RFC3339),
		})
	}
	return writeCSV(w, rows)
}

// BackTranslationSummary aggregates a set of round-trip checks.
type BackTranslationSummary struct {
	Total         int       `json:"total"`
	Acceptable    int       `json:"acceptable"`
	AvgConfidence float64   `json:"avg_confidence"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// BackTranslationReport is the export document for round-trip checks.
type BackTranslationReport struct {
	Summary         BackTranslationSummary `json:"summary"`
	DetailedResults []backtranslate.Result `json:"detailed_results"`
}

// NewBackTranslationReport builds a report over round-trip results.
func NewBackTranslationReport(results []backtranslate.Result) *BackTranslationReport {
	r := &BackTranslationReport{
		Summary: BackTranslationSummary{
			Total:       len(results),
			GeneratedAt: time.Now().UTC(),
		},
	}
	var confSum float64
	for _, res := range results {
		if res.Acceptable {
			r.Summary.Acceptable++
		}
		confSum += res.Confidence
	}
	if len(results) > 0 {
		r.Summary.AvgConfidence = confSum / float64(len(results))
	}
	r.DetailedResults = tail(results)
	return r
}

// WriteJSON renders the report as indented JSON.
func (r *BackTranslationReport) WriteJSON(w io.Writer) error {
	return writeJSON(w, r)
}

type backTranslationRow struct {
	Method     string  `csv:"method"`
	Confidence float64 `csv:"confidence"`
	Acceptable bool    `csv:"acceptable"`
	Issues     int     `csv:"issues"`
	ElapsedMS  int64   `csv:"elapsed_ms"`
}

// WriteCSV renders the detailed results as CSV rows.
func (r *BackTranslationReport) WriteCSV(w io.Writer) error {
	rows := make([]backTranslationRow, 0, len(r.DetailedResults))
	for _, res := range r.DetailedResults {
		rows = append(rows, backTranslationRow{
			Method:     string(res.Method),
			Confidence: res.Confidence,
			Acceptable: res.Acceptable,
			Issues:     len(res.Issues),
			ElapsedMS:  res.ElapsedMS,
		})
	}
	return writeCSV(w, rows)
}

// AlertSummary aggregates a set of alerts.
type AlertSummary struct {
	Total       int            `json:"total"`
	Active      int            `json:"active"`
	BySeverity  map[string]int `json:"by_severity"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// AlertReport is the export document for alerts.
type AlertReport struct {
	Summary AlertSummary  `json:"summary"`
	Alerts  []model.Alert `json:"alerts"`
}

// NewAlertReport builds a report over alerts, keeping the last 100.
func NewAlertReport(alerts []model.Alert) *AlertReport {
	r := &AlertReport{
		Summary: AlertSummary{
			Total:       len(alerts),
			BySeverity:  make(map[string]int),
			GeneratedAt: time.Now().UTC(),
		},
	}
	for _, a := range alerts {
		if a.Status == model.AlertActive || a.Status == model.AlertEscalated {
			r.Summary.Active++
		}
		r.Summary.BySeverity[string(a.Severity)]++
	}
	r.Alerts = tail(alerts)
	return r
}

// WriteJSON renders the report as indented JSON.
func (r *AlertReport) WriteJSON(w io.Writer) error {
	return writeJSON(w, r)
}

type alertRow struct {
	ID          string  `csv:"id"`
	Type        string  `csv:"type"`
	Severity    string  `csv:"severity"`
	Status      string  `csv:"status"`
	MetricName  string  `csv:"metric_name"`
	MetricValue float64 `csv:"metric_value"`
	TriggeredAt string  `csv:"triggered_at"`
}

// WriteCSV renders the alerts as CSV rows.
func (r *AlertReport) WriteCSV(w io.Writer) error {
	rows := make([]alertRow, 0, len(r.Alerts))
	for _, a := range r.Alerts {
		rows = append(rows, alertRow{
			ID:          a.ID,
			Type:        a.Type,
			Severity:    string(a.Severity),
			Status:      string(a.Status),
			MetricName:  a.MetricName,
			MetricValue: a.MetricValue,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		})
	}
	return writeCSV(w, rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}

func writeCSV[T any](w io.Writer, rows []T) error {
	raw, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "report: encode csv")
	}
	if _, err := w.Write(raw); err != nil {
		return eris.Wrap(err, "report: write csv")
	}
	return nil
}

// tail returns the last maxDetails elements.
func tail[T any](items []T) []T {
	if len(items) <= maxDetails {
		return items
	}
	return items[len(items)-maxDetails:]
}
