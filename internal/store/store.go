// Package store persists validation results, review workflow state,
// learned corrections and alerts.
package store

import (
	"context"
	"time"

	"github.com/medlingo/transqa/internal/model"
)

// ResultFilter specifies criteria for listing validation results.
type ResultFilter struct {
	SourceLang string       `json:"source_lang,omitempty"`
	TargetLang string       `json:"target_lang,omitempty"`
	Status     model.Status `json:"status,omitempty"`
	Limit      int          `json:"limit,omitempty"`
	Offset     int          `json:"offset,omitempty"`
}

// ReviewFilter specifies criteria for listing review requests.
type ReviewFilter struct {
	State    model.ReviewState `json:"state,omitempty"`
	Reviewer string            `json:"reviewer,omitempty"`
	Limit    int               `json:"limit,omitempty"`
}

// PairScore is one historical confidence observation for a language
// pair, newest first in query results.
type PairScore struct {
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store defines the persistence interface for the validation pipeline.
type Store interface {
	// Validation results
	SaveResult(ctx context.Context, result *model.Result) error
	GetResult(ctx context.Context, id string) (*model.Result, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]model.Result, error)

	// Language-pair confidence history
	AppendPairScore(ctx context.Context, sourceLang, targetLang string, score float64) error
	RecentPairScores(ctx context.Context, sourceLang, targetLang string, limit int) ([]PairScore, error)

	// Review workflow
	SaveReviewRequest(ctx context.Context, req *model.ReviewRequest) error
	UpdateReviewRequest(ctx context.Context, req *model.ReviewRequest) error
	ListReviewRequests(ctx context.Context, filter ReviewFilter) ([]model.ReviewRequest, error)
	SaveDecision(ctx context.Context, decision *model.ReviewDecision) error
	ListDecisions(ctx context.Context, requestID string) ([]model.ReviewDecision, error)

	// Reviewers
	SaveReviewer(ctx context.Context, profile *model.ReviewerProfile) error
	GetReviewer(ctx context.Context, id string) (*model.ReviewerProfile, error)
	ListReviewers(ctx context.Context) ([]model.ReviewerProfile, error)

	// Learned corrections
	SaveCorrectionPattern(ctx context.Context, sourceLang, targetLang string, p model.CorrectionPattern) error
	ListCorrectionPatterns(ctx context.Context, sourceLang, targetLang string) ([]model.CorrectionPattern, error)

	// Alerts
	SaveAlert(ctx context.Context, alert *model.Alert) error
	UpdateAlert(ctx context.Context, alert *model.Alert) error
	ListAlerts(ctx context.Context, status model.AlertStatus, limit int) ([]model.Alert, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
