package model

import (
	"strings"
	"time"
)

// Priority orders review requests. Lower rank means higher urgency.
type Priority string

const (
	PriorityCritical    Priority = "critical"
	PriorityHigh        Priority = "high"
	PriorityMedium      Priority = "medium"
	PriorityLow         Priority = "low"
	PriorityEducational Priority = "educational"
)

// priorityRank maps priorities to numeric ranks for queue ordering.
var priorityRank = map[Priority]int{
	PriorityCritical:    0,
	PriorityHigh:        1,
	PriorityMedium:      2,
	PriorityLow:         3,
	PriorityEducational: 4,
}

// Rank returns the numeric urgency rank for a priority. Unrecognized
// priorities rank below educational.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// MoreUrgent reports whether p should be served before other.
func (p Priority) MoreUrgent(other Priority) bool {
	return p.Rank() < other.Rank()
}

// ReviewState tracks a request through its lifecycle.
type ReviewState string

const (
	ReviewStatePending   ReviewState = "pending"
	ReviewStateAssigned  ReviewState = "assigned"
	ReviewStateCompleted ReviewState = "completed"
	ReviewStateExpired   ReviewState = "expired"
)

// ReviewRequest is one unit of work for a human reviewer.
type ReviewRequest struct {
	ID               string         `json:"id"`
	ResultID         string         `json:"result_id"`
	Result           *Result        `json:"result,omitempty"`
	Priority         Priority       `json:"priority"`
	Reason           string         `json:"reason"`
	MedicalCategory  string         `json:"medical_category,omitempty"`
	RequestedAt      time.Time      `json:"requested_at"`
	Deadline         time.Time      `json:"deadline"`
	AssignedReviewer string         `json:"assigned_reviewer,omitempty"`
	State            ReviewState    `json:"state"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ReviewerStats holds rolling performance aggregates for one reviewer.
type ReviewerStats struct {
	ReviewsCompleted int     `json:"reviews_completed"`
	AvgTimeSeconds   float64 `json:"avg_time_seconds"`
	AvgQuality       float64 `json:"avg_quality"`
	Accuracy         float64 `json:"accuracy"`
}

// ReviewerProfile describes a human reviewer. Profiles are created by
// administrative action; the pipeline only reads them.
type ReviewerProfile struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Contact         string        `json:"contact"`
	Role            string        `json:"role"`
	Languages       []string      `json:"languages"`
	Specializations []string      `json:"specializations"`
	Certifications  []string      `json:"certifications,omitempty"`
	Active          bool          `json:"active"`
	MaxDailyReviews int           `json:"max_daily_reviews"`
	Stats           ReviewerStats `json:"stats"`
}

// CanReview reports whether the reviewer is qualified for a language
// pair. Both languages must be in the reviewer's qualified set; if a
// specialization is required it must be held; inactive reviewers never
// qualify.
func (p *ReviewerProfile) CanReview(sourceLang, targetLang, specialization string) bool {
	if !p.Active {
		return false
	}
	if !containsFold(p.Languages, sourceLang) || !containsFold(p.Languages, targetLang) {
		return false
	}
	if specialization != "" && !containsFold(p.Specializations, specialization) {
		return false
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

// DecisionStatus is the terminal outcome of a completed review.
type DecisionStatus string

const (
	DecisionApproved  DecisionStatus = "approved"
	DecisionRejected  DecisionStatus = "rejected"
	DecisionCorrected DecisionStatus = "corrected"
	DecisionEscalated DecisionStatus = "escalated"
	DecisionExpired   DecisionStatus = "expired"
	DecisionSkipped   DecisionStatus = "skipped"
)

// ReviewDecision records a completed review. Immutable once submitted.
type ReviewDecision struct {
	RequestID        string         `json:"request_id"`
	ReviewerID       string         `json:"reviewer_id"`
	Status           DecisionStatus `json:"status"`
	CorrectedText    string         `json:"corrected_text,omitempty"`
	QualityScore     *float64       `json:"quality_score,omitempty"`
	IssuesFound      []string       `json:"issues_found,omitempty"`
	TimeSpentSeconds int            `json:"time_spent_seconds,omitempty"`
	Confidence       float64        `json:"confidence"`
	DecidedAt        time.Time      `json:"decided_at"`
}

// CorrectionPattern is a learned correction derived from a corrected
// review decision, keyed by language pair.
type CorrectionPattern struct {
	SourceText      string    `json:"source_text"`
	OriginalText    string    `json:"original_text"`
	CorrectedText   string    `json:"corrected_text"`
	IssuesFound     []string  `json:"issues_found,omitempty"`
	MedicalCategory string    `json:"medical_category,omitempty"`
	LearnedAt       time.Time `json:"learned_at"`
}
