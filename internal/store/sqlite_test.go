package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlingo/transqa/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "transqa-test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResultRoundtrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	result := &model.Result{
		ID:             "res-1",
		SourceText:     "take 500mg daily",
		TranslatedText: "tome 500mg al día",
		SourceLang:     "en",
		TargetLang:     "es",
		Status:         model.StatusWarning,
		Issues: []model.Issue{
			{Validator: "numeric_consistency", Severity: model.SeverityWarning, Message: "check numbers", Confidence: 0.8},
		},
		Metrics:   model.Metrics{TotalValidations: 6, Warnings: 1, ConfidenceScore: 0.72},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveResult(ctx, result))

	got, err := s.GetResult(ctx, "res-1")
	require.NoError(t, err)
	assert.Equal(t, result.SourceText, got.SourceText)
	assert.Equal(t, result.Status, got.Status)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, "numeric_consistency", got.Issues[0].Validator)
	assert.Equal(t, 0.72, got.Metrics.ConfidenceScore)

	_, err = s.GetResult(ctx, "missing")
	require.Error(t, err)
}

func TestListResultsFilters(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	seed := []*model.Result{
		{ID: "a", SourceLang: "en", TargetLang: "es", Status: model.StatusPassed},
		{ID: "b", SourceLang: "en", TargetLang: "es", Status: model.StatusFailed},
		{ID: "c", SourceLang: "en", TargetLang: "fr", Status: model.StatusPassed},
	}
	for _, r := range seed {
		require.NoError(t, s.SaveResult(ctx, r))
	}

	got, err := s.ListResults(ctx, ResultFilter{TargetLang: "es"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ListResults(ctx, ResultFilter{Status: model.StatusFailed})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	got, err = s.ListResults(ctx, ResultFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPairScores(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []float64{0.5, 0.7, 0.9} {
		require.NoError(t, s.AppendPairScore(ctx, "en", "es", v))
	}
	require.NoError(t, s.AppendPairScore(ctx, "en", "fr", 0.1))

	scores, err := s.RecentPairScores(ctx, "en", "es", 10)
	require.NoError(t, err)
	require.Len(t, scores, 3, "other pairs are isolated")

	seen := map[float64]bool{}
	for _, ps := range scores {
		seen[ps.Score] = true
	}
	assert.True(t, seen[0.5] && seen[0.7] && seen[0.9])

	scores, err = s.RecentPairScores(ctx, "en", "es", 2)
	require.NoError(t, err)
	assert.Len(t, scores, 2, "limit applies")
}

func TestReviewRequestLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	req := &model.ReviewRequest{
		ID:          "req-1",
		ResultID:    "res-1",
		Priority:    model.PriorityHigh,
		Reason:      "validation failed",
		RequestedAt: now,
		Deadline:    now.Add(24 * time.Hour),
		State:       model.ReviewStatePending,
	}
	require.NoError(t, s.SaveReviewRequest(ctx, req))

	pending, err := s.ListReviewRequests(ctx, ReviewFilter{State: model.ReviewStatePending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "req-1", pending[0].ID)
	assert.Equal(t, model.PriorityHigh, pending[0].Priority)

	req.State = model.ReviewStateAssigned
	req.AssignedReviewer = "rev-1"
	require.NoError(t, s.UpdateReviewRequest(ctx, req))

	assigned, err := s.ListReviewRequests(ctx, ReviewFilter{State: model.ReviewStateAssigned, Reviewer: "rev-1"})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "rev-1", assigned[0].AssignedReviewer)

	pending, err = s.ListReviewRequests(ctx, ReviewFilter{State: model.ReviewStatePending})
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = s.UpdateReviewRequest(ctx, &model.ReviewRequest{ID: "missing"})
	require.Error(t, err)
}

func TestDecisions(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	req := &model.ReviewRequest{
		ID: "req-1", ResultID: "res-1", Priority: model.PriorityMedium,
		RequestedAt: time.Now().UTC(), Deadline: time.Now().UTC().Add(time.Hour),
		State: model.ReviewStatePending,
	}
	require.NoError(t, s.SaveReviewRequest(ctx, req))

	d1 := &model.ReviewDecision{
		RequestID: "req-1", ReviewerID: "rev-1", Status: model.DecisionRejected,
		DecidedAt: time.Now().UTC(),
	}
	d2 := &model.ReviewDecision{
		RequestID: "req-1", ReviewerID: "rev-2", Status: model.DecisionCorrected,
		CorrectedText: "tome 500mg una vez al día",
		DecidedAt:     time.Now().UTC().Add(time.Minute),
	}
	require.NoError(t, s.SaveDecision(ctx, d1))
	require.NoError(t, s.SaveDecision(ctx, d2))

	decisions, err := s.ListDecisions(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, model.DecisionRejected, decisions[0].Status)
	assert.Equal(t, "tome 500mg una vez al día", decisions[1].CorrectedText)
}

func TestReviewerUpsert(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	p := &model.ReviewerProfile{
		ID:        "rev-1",
		Name:      "Ana",
		Languages: []string{"en", "es"},
		Active:    true,
	}
	require.NoError(t, s.SaveReviewer(ctx, p))

	got, err := s.GetReviewer(ctx, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)

	p.Active = false
	p.Stats.ReviewsCompleted = 10
	require.NoError(t, s.SaveReviewer(ctx, p), "save is an upsert")

	got, err = s.GetReviewer(ctx, "rev-1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 10, got.Stats.ReviewsCompleted)

	all, err := s.ListReviewers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetReviewer(ctx, "missing")
	require.Error(t, err)
}

func TestCorrectionPatterns(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	p := model.CorrectionPattern{
		SourceText:    "take 500mg daily",
		OriginalText:  "tome 500mg diario",
		CorrectedText: "tome 500mg al día",
		LearnedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.SaveCorrectionPattern(ctx, "en", "es", p))
	require.NoError(t, s.SaveCorrectionPattern(ctx, "en", "es", p))

	got, err := s.ListCorrectionPatterns(ctx, "en", "es")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ListCorrectionPatterns(ctx, "en", "fr")
	require.NoError(t, err)
	assert.Empty(t, got, "patterns are keyed by language pair")
}

func TestAlertPersistence(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	a := &model.Alert{
		ID:          "alert-1",
		Type:        "low_confidence",
		Severity:    model.AlertError,
		Status:      model.AlertActive,
		MetricName:  "confidence_score",
		MetricValue: 0.4,
		TriggeredAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveAlert(ctx, a))

	active, err := s.ListAlerts(ctx, model.AlertActive, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "alert-1", active[0].ID)

	a.Status = model.AlertResolved
	require.NoError(t, s.UpdateAlert(ctx, a))

	active, err = s.ListAlerts(ctx, model.AlertActive, 10)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListAlerts(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.AlertResolved, all[0].Status)

	require.Error(t, s.UpdateAlert(ctx, &model.Alert{ID: "missing"}))
}
