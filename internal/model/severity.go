// Package model defines the core data types shared across the translation
// QA pipeline: validation issues and results, confidence scores, review
// routing records, and alert definitions.
package model

// Severity classifies a single validation finding.
type Severity string

const (
	SeverityPassed  Severity = "passed"
	SeveritySkipped Severity = "skipped"
	SeverityWarning Severity = "warning"
	SeverityFailed  Severity = "failed"
)

// severityRank maps severities to numeric ranks for comparison.
// Higher rank means worse.
var severityRank = map[Severity]int{
	SeverityPassed:  0,
	SeveritySkipped: 1,
	SeverityWarning: 2,
	SeverityFailed:  3,
}

// Worse reports whether s is strictly worse than other. Unrecognized
// severities compare as passed.
func (s Severity) Worse(other Severity) bool {
	return severityRank[s] > severityRank[other]
}

// Status is the overall verdict for a validation run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// statusRank orders statuses from most to least favorable.
var statusRank = map[Status]int{
	StatusPassed:  0,
	StatusWarning: 1,
	StatusFailed:  2,
}

// Worse reports whether s is a strictly less favorable verdict than other.
func (s Status) Worse(other Status) bool {
	return statusRank[s] > statusRank[other]
}
