package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlingo/transqa/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func makeResult(status model.Status, conf float64, warnings int) *model.Result {
	r := &model.Result{
		ID:             uuid.NewString(),
		SourceText:     "take 500mg daily",
		TranslatedText: "tome 500mg al día",
		SourceLang:     "en",
		TargetLang:     "es",
		Status:         status,
		Metrics:        model.Metrics{ConfidenceScore: conf},
	}
	for i := 0; i < warnings; i++ {
		r.Issues = append(r.Issues, model.Issue{Severity: model.SeverityWarning})
	}
	return r
}

func addReviewer(t *testing.T, r *Router, langs []string) string {
	t.Helper()
	p := &model.ReviewerProfile{
		Name:      "reviewer",
		Languages: langs,
		Active:    true,
	}
	require.NoError(t, r.UpsertReviewer(context.Background(), p))
	return p.ID
}

func manualConfig() Config {
	cfg := DefaultRouterConfig()
	cfg.AutoAssign = false
	return cfg
}

func TestDerivePriority(t *testing.T) {
	t.Parallel()

	r := NewRouter(manualConfig())
	ctx := context.Background()

	tests := []struct {
		name   string
		result *model.Result
		want   model.Priority
	}{
		{"failed validation", makeResult(model.StatusFailed, 0.9, 0), model.PriorityHigh},
		{"very low confidence", makeResult(model.StatusPassed, 0.4, 0), model.PriorityHigh},
		{"below review threshold", makeResult(model.StatusPassed, 0.7, 0), model.PriorityMedium},
		{"warnings present", makeResult(model.StatusWarning, 0.9, 2), model.PriorityMedium},
		{"clean result", makeResult(model.StatusPassed, 0.95, 0), model.PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := r.Submit(ctx, tt.result, SubmitOptions{})
			require.NoError(t, err)
			r.mu.Lock()
			got := r.active[id].Priority
			r.mu.Unlock()
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("critical content flagged", func(t *testing.T) {
		result := makeResult(model.StatusPassed, 0.95, 0)
		result.Metadata = map[string]any{
			"confidence": model.ConfidenceScore{
				Factors: []model.Factor{{Type: model.FactorCriticalContent, Score: 0.9}},
			},
		}
		id, err := r.Submit(ctx, result, SubmitOptions{})
		require.NoError(t, err)
		r.mu.Lock()
		got := r.active[id].Priority
		r.mu.Unlock()
		assert.Equal(t, model.PriorityCritical, got)
	})
}

func TestSubmitQueueFull(t *testing.T) {
	t.Parallel()

	cfg := manualConfig()
	cfg.QueueCapacity = 1
	r := NewRouter(cfg)
	ctx := context.Background()

	_, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{})
	require.NoError(t, err)
	_, err = r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestNextForPriorityOrder(t *testing.T) {
	t.Parallel()

	r := NewRouter(manualConfig())
	ctx := context.Background()
	reviewerID := addReviewer(t, r, []string{"en", "es"})

	lowID, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{Priority: model.PriorityLow})
	require.NoError(t, err)
	criticalID, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{Priority: model.PriorityCritical})
	require.NoError(t, err)
	mediumID, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{Priority: model.PriorityMedium})
	require.NoError(t, err)

	for _, wantID := range []string{criticalID, mediumID, lowID} {
		req, err := r.NextFor(ctx, reviewerID)
		require.NoError(t, err)
		require.NotNil(t, req)
		assert.Equal(t, wantID, req.ID)
		require.NoError(t, r.SubmitDecision(ctx, model.ReviewDecision{
			RequestID:  req.ID,
			ReviewerID: reviewerID,
			Status:     model.DecisionApproved,
		}))
	}

	req, err := r.NextFor(ctx, reviewerID)
	require.NoError(t, err)
	assert.Nil(t, req, "queue drained")
}

func TestNextForSkippedOrderPreserved(t *testing.T) {
	t.Parallel()

	r := NewRouter(manualConfig())
	ctx := context.Background()

	frResult := makeResult(model.StatusPassed, 0.9, 0)
	frResult.TargetLang = "fr"
	frID, err := r.Submit(ctx, frResult, SubmitOptions{Priority: model.PriorityMedium})
	require.NoError(t, err)
	esID, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{Priority: model.PriorityMedium})
	require.NoError(t, err)

	esReviewer := addReviewer(t, r, []string{"en", "es"})
	req, err := r.NextFor(ctx, esReviewer)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, esID, req.ID, "unqualified requests are skipped")

	frReviewer := addReviewer(t, r, []string{"en", "fr"})
	req, err = r.NextFor(ctx, frReviewer)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, frID, req.ID, "skipped requests keep their place")
}

func TestNextForUnknownReviewer(t *testing.T) {
	t.Parallel()

	r := NewRouter(manualConfig())
	_, err := r.NextFor(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUnknownReviewer)
}

func TestAutoAssign(t *testing.T) {
	t.Parallel()

	r := NewRouter(DefaultRouterConfig())
	ctx := context.Background()
	reviewerID := addReviewer(t, r, []string{"en", "es"})

	id, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{})
	require.NoError(t, err)

	req, err := r.NextFor(ctx, reviewerID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, id, req.ID)
	assert.Equal(t, model.ReviewStateAssigned, req.State)
	assert.Equal(t, reviewerID, req.AssignedReviewer)
}

func TestAutoAssignPrefersAccuracyThenLoad(t *testing.T) {
	t.Parallel()

	r := NewRouter(DefaultRouterConfig())
	ctx := context.Background()

	sharp := &model.ReviewerProfile{
		Name: "sharp", Languages: []string{"en", "es"}, Active: true,
		Stats: model.ReviewerStats{Accuracy: 0.95},
	}
	dull := &model.ReviewerProfile{
		Name: "dull", Languages: []string{"en", "es"}, Active: true,
		Stats: model.ReviewerStats{Accuracy: 0.6},
	}
	require.NoError(t, r.UpsertReviewer(ctx, sharp))
	require.NoError(t, r.UpsertReviewer(ctx, dull))

	id, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{})
	require.NoError(t, err)

	r.mu.Lock()
	assignee := r.active[id].AssignedReviewer
	r.mu.Unlock()
	assert.Equal(t, sharp.ID, assignee)
}

func TestSubmitDecisionEscalated(t *testing.T) {
	t.Parallel()

	r := NewRouter(manualConfig())
	ctx := context.Background()
	reviewerID := addReviewer(t, r, []string{"en", "es"})

	origID, err := r.Submit(ctx, makeResult(model.StatusFailed, 0.4, 0), SubmitOptions{})
	require.NoError(t, err)

	require.NoError(t, r.SubmitDecision(ctx, model.ReviewDecision{
		RequestID:  origID,
		ReviewerID: reviewerID,
		Status:     model.DecisionEscalated,
	}))

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.active, 1, "escalation opens a fresh request")
	for _, req := range r.active {
		assert.Equal(t, model.PriorityHigh, req.Priority)
		assert.Equal(t, origID, req.Metadata["escalated_from"])
	}
}

func TestSubmitDecisionUnknownRequest(t *testing.T) {
	t.Parallel()

	r := NewRouter(manualConfig())
	err := r.SubmitDecision(context.Background(), model.ReviewDecision{RequestID: "nope"})
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestReviewerStatsRollup(t *testing.T) {
	t.Parallel()

	r := NewRouter(manualConfig())
	ctx := context.Background()
	reviewerID := addReviewer(t, r, []string{"en", "es"})

	q1, q2 := 0.8, 1.0
	decisions := []model.ReviewDecision{
		{ReviewerID: reviewerID, Status: model.DecisionApproved, TimeSpentSeconds: 100, QualityScore: &q1},
		{ReviewerID: reviewerID, Status: model.DecisionApproved, TimeSpentSeconds: 200, QualityScore: &q2},
	}
	for _, d := range decisions {
		id, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{})
		require.NoError(t, err)
		d.RequestID = id
		require.NoError(t, r.SubmitDecision(ctx, d))
	}

	r.mu.Lock()
	stats := r.reviewers[reviewerID].Stats
	r.mu.Unlock()
	assert.Equal(t, 2, stats.ReviewsCompleted)
	assert.InDelta(t, 150.0, stats.AvgTimeSeconds, 0.001)
	assert.InDelta(t, 0.9, stats.AvgQuality, 0.001)
}

func TestCorrectionLearning(t *testing.T) {
	t.Parallel()

	cfg := manualConfig()
	cfg.MinReviewsForLearning = 2
	r := NewRouter(cfg)
	ctx := context.Background()
	reviewerID := addReviewer(t, r, []string{"en", "es"})

	correct := func() {
		id, err := r.Submit(ctx, makeResult(model.StatusWarning, 0.6, 1), SubmitOptions{})
		require.NoError(t, err)
		require.NoError(t, r.SubmitDecision(ctx, model.ReviewDecision{
			RequestID:     id,
			ReviewerID:    reviewerID,
			Status:        model.DecisionCorrected,
			CorrectedText: "tome 500mg una vez al día",
		}))
	}

	correct()
	assert.Nil(t, r.ApplyCorrections(ctx, "take 500mg daily", "tome 500mg al día", "en", "es"),
		"no corrections until the learning minimum is met")

	correct()
	got := r.ApplyCorrections(ctx, "take 500mg daily", "tome 500mg al día", "en", "es")
	require.NotNil(t, got)
	assert.Equal(t, "tome 500mg una vez al día", got.CorrectedText)
	assert.Greater(t, got.SourceSimilarity, 0.9)
	assert.Greater(t, got.TranslationSimilarity, 0.8)

	assert.Nil(t, r.ApplyCorrections(ctx, "completely different sentence", "otra frase distinta", "en", "es"),
		"dissimilar text never matches a pattern")
}

func TestSweepExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cfg := manualConfig()
	cfg.ReviewTimeout = time.Hour
	r := NewRouter(cfg, WithClock(clock.now))
	ctx := context.Background()

	_, err := r.Submit(ctx, makeResult(model.StatusPassed, 0.9, 0), SubmitOptions{Priority: model.PriorityMedium})
	require.NoError(t, err)
	_, err = r.Submit(ctx, makeResult(model.StatusFailed, 0.3, 0), SubmitOptions{Priority: model.PriorityCritical})
	require.NoError(t, err)
	require.Equal(t, 2, r.Pending())

	clock.advance(30 * time.Minute)
	r.Sweep(ctx)
	assert.Equal(t, 2, r.Pending(), "nothing expires before its deadline")

	clock.advance(31 * time.Minute)
	r.Sweep(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.active, 1, "medium expires, critical is reissued")
	for _, req := range r.active {
		assert.Equal(t, model.PriorityHigh, req.Priority)
		assert.Contains(t, req.Metadata, "escalated_from")
	}
}

func TestQueueOrdering(t *testing.T) {
	t.Parallel()

	var q requestQueue
	mk := func(p model.Priority, seq int64) *queueItem {
		return &queueItem{req: &model.ReviewRequest{ID: uuid.NewString(), Priority: p}, seq: seq}
	}
	q.push(mk(model.PriorityLow, 1))
	q.push(mk(model.PriorityMedium, 2))
	q.push(mk(model.PriorityMedium, 3))
	q.push(mk(model.PriorityCritical, 4))

	assert.Equal(t, model.PriorityCritical, q.pop().req.Priority)
	first := q.pop()
	assert.Equal(t, model.PriorityMedium, first.req.Priority)
	assert.Equal(t, int64(2), first.seq, "equal priorities serve in submission order")
	assert.Equal(t, int64(3), q.pop().seq)
	assert.Equal(t, model.PriorityLow, q.pop().req.Priority)
	assert.Nil(t, q.pop())
}
