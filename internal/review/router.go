// Package review routes low-confidence or safety-flagged translations
// to qualified human reviewers and feeds their corrections back as
// learned patterns.
package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/config"
	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/store"
	"github.com/medlingo/transqa/pkg/notify"
)

// ErrQueueFull is returned when the review queue is at capacity.
var ErrQueueFull = eris.New("review: queue full")

// ErrUnknownRequest is returned for decisions on requests the router
// does not hold.
var ErrUnknownRequest = eris.New("review: unknown request")

// ErrUnknownReviewer is returned when a reviewer id is not registered.
var ErrUnknownReviewer = eris.New("review: unknown reviewer")

// Config controls the router.
type Config struct {
	QueueCapacity             int
	ReviewTimeout             time.Duration
	AutoAssign                bool
	AutoReviewThreshold       float64
	MinReviewsForLearning     int
	SweepInterval             time.Duration
	SourceSimilarityGate      float64
	TranslationSimilarityGate float64
}

// DefaultRouterConfig returns the router defaults.
func DefaultRouterConfig() Config {
	return Config{
		QueueCapacity:             1000,
		ReviewTimeout:             24 * time.Hour,
		AutoAssign:                true,
		AutoReviewThreshold:       0.75,
		MinReviewsForLearning:     3,
		SweepInterval:             time.Minute,
		SourceSimilarityGate:      0.9,
		TranslationSimilarityGate: 0.8,
	}
}

// FromConfig builds a router Config from the loaded configuration.
func FromConfig(cfg config.ReviewConfig) Config {
	c := DefaultRouterConfig()
	if cfg.QueueCapacity > 0 {
		c.QueueCapacity = cfg.QueueCapacity
	}
	if cfg.ReviewTimeoutHours > 0 {
		c.ReviewTimeout = cfg.ReviewTimeout()
	}
	c.AutoAssign = cfg.AutoAssign
	if cfg.AutoReviewThreshold > 0 {
		c.AutoReviewThreshold = cfg.AutoReviewThreshold
	}
	if cfg.MinReviewsForLearning > 0 {
		c.MinReviewsForLearning = cfg.MinReviewsForLearning
	}
	if cfg.SweepIntervalSecs > 0 {
		c.SweepInterval = time.Duration(cfg.SweepIntervalSecs) * time.Second
	}
	if cfg.SourceSimilarityGate > 0 {
		c.SourceSimilarityGate = cfg.SourceSimilarityGate
	}
	if cfg.TranslationSimilarityGate > 0 {
		c.TranslationSimilarityGate = cfg.TranslationSimilarityGate
	}
	return c
}

// Router owns the review queue, reviewer roster and learned-correction
// patterns. Safe for concurrent use; one mutex guards all shared state.
type Router struct {
	cfg    Config
	store  store.Store
	sender notify.Sender
	now    func() time.Time

	mu        sync.Mutex
	queue     requestQueue
	active    map[string]*model.ReviewRequest
	assigned  map[string][]string
	reviewers map[string]*model.ReviewerProfile
	dailyLoad map[string]int
	loadDay   string
	patterns  map[string][]model.CorrectionPattern
	seq       int64
}

// Option configures a Router.
type Option func(*Router)

// WithStore persists review state. Persistence failures are logged,
// never fatal.
func WithStore(s store.Store) Option {
	return func(r *Router) { r.store = s }
}

// WithSender notifies reviewers on assignment.
func WithSender(s notify.Sender) Option {
	return func(r *Router) { r.sender = s }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// NewRouter creates a Router.
func NewRouter(cfg Config, opts ...Option) *Router {
	def := DefaultRouterConfig()
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = def.QueueCapacity
	}
	if cfg.ReviewTimeout <= 0 {
		cfg.ReviewTimeout = def.ReviewTimeout
	}
	if cfg.AutoReviewThreshold <= 0 {
		cfg.AutoReviewThreshold = def.AutoReviewThreshold
	}
	if cfg.MinReviewsForLearning <= 0 {
		cfg.MinReviewsForLearning = def.MinReviewsForLearning
	}
	if cfg.SourceSimilarityGate <= 0 {
		cfg.SourceSimilarityGate = def.SourceSimilarityGate
	}
	if cfg.TranslationSimilarityGate <= 0 {
		cfg.TranslationSimilarityGate = def.TranslationSimilarityGate
	}

	r := &Router{
		cfg:       cfg,
		now:       time.Now,
		active:    make(map[string]*model.ReviewRequest),
		assigned:  make(map[string][]string),
		reviewers: make(map[string]*model.ReviewerProfile),
		dailyLoad: make(map[string]int),
		patterns:  make(map[string][]model.CorrectionPattern),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SubmitOptions override the derived request attributes.
type SubmitOptions struct {
	Priority        model.Priority
	Reason          string
	MedicalCategory string
}

// Submit enqueues a validation result for human review and returns the
// request id. Priority and reason are derived from the result unless
// overridden.
func (r *Router) Submit(ctx context.Context, result *model.Result, opts SubmitOptions) (string, error) {
	r.mu.Lock()

	if len(r.active) >= r.cfg.QueueCapacity {
		r.mu.Unlock()
		return "", ErrQueueFull
	}

	priority := opts.Priority
	reason := opts.Reason
	if priority == "" {
		priority, reason = r.derivePriority(result, reason)
	}
	if reason == "" {
		reason = "routine quality spot check"
	}

	now := r.now()
	req := &model.ReviewRequest{
		ID:              uuid.NewString(),
		ResultID:        result.ID,
		Result:          result,
		Priority:        priority,
		Reason:          reason,
		MedicalCategory: opts.MedicalCategory,
		RequestedAt:     now.UTC(),
		Deadline:        now.Add(r.cfg.ReviewTimeout).UTC(),
		State:           model.ReviewStatePending,
	}
	r.active[req.ID] = req

	assignee := ""
	if r.cfg.AutoAssign {
		assignee = r.pickReviewer(req)
	}
	if assignee != "" {
		r.assign(req, assignee)
	} else {
		r.seq++
		r.queue.push(&queueItem{req: req, seq: r.seq})
	}
	r.mu.Unlock()

	r.persistRequest(ctx, req, false)
	if assignee != "" {
		r.notifyAssignment(ctx, req, assignee)
	}
	zap.L().Info("review request submitted",
		zap.String("request_id", req.ID),
		zap.String("priority", string(req.Priority)),
		zap.String("assignee", assignee),
	)
	return req.ID, nil
}

// derivePriority applies the default urgency rules to a result.
func (r *Router) derivePriority(result *model.Result, reason string) (model.Priority, string) {
	if criticalContentFlagged(result) {
		return model.PriorityCritical, "safety-critical content detected"
	}
	conf := result.Metrics.ConfidenceScore
	switch {
	case result.Status == model.StatusFailed:
		return model.PriorityHigh, "validation failed"
	case conf < 0.5:
		return model.PriorityHigh, "very low validation confidence"
	case conf < r.cfg.AutoReviewThreshold:
		return model.PriorityMedium, "confidence below review threshold"
	case result.WarningCount() > 0:
		return model.PriorityMedium, "validation warnings present"
	default:
		return model.PriorityLow, reason
	}
}

// criticalContentFlagged checks the detailed confidence score attached
// by the pipeline for a tripped critical-content factor.
func criticalContentFlagged(result *model.Result) bool {
	detailed, ok := result.Metadata["confidence"].(model.ConfidenceScore)
	if !ok {
		return false
	}
	for _, f := range detailed.Factors {
		if f.Type == model.FactorCriticalContent && f.Score < 1.0 {
			return true
		}
	}
	return false
}

// pickReviewer selects the best qualified reviewer under their daily
// cap, preferring higher accuracy then lower current load. Empty means
// no one qualifies. Caller holds the lock.
func (r *Router) pickReviewer(req *model.ReviewRequest) string {
	r.rollLoadDay()

	best := ""
	var bestProfile *model.ReviewerProfile
	for id, p := range r.reviewers {
		if !p.CanReview(req.Result.SourceLang, req.Result.TargetLang, req.MedicalCategory) {
			continue
		}
		if p.MaxDailyReviews > 0 && r.dailyLoad[id] >= p.MaxDailyReviews {
			continue
		}
		if bestProfile == nil ||
			p.Stats.Accuracy > bestProfile.Stats.Accuracy ||
			(p.Stats.Accuracy == bestProfile.Stats.Accuracy && r.dailyLoad[id] < r.dailyLoad[best]) {
			best, bestProfile = id, p
		}
	}
	return best
}

// assign marks a request assigned. Caller holds the lock.
func (r *Router) assign(req *model.ReviewRequest, reviewerID string) {
	req.State = model.ReviewStateAssigned
	req.AssignedReviewer = reviewerID
	r.assigned[reviewerID] = append(r.assigned[reviewerID], req.ID)
}

// rollLoadDay resets daily load counters at midnight. Caller holds the
// lock.
func (r *Router) rollLoadDay() {
	day := r.now().UTC().Format("2006-01-02")
	if day != r.loadDay {
		r.loadDay = day
		r.dailyLoad = make(map[string]int)
	}
}

// NextFor returns the next request for a reviewer: first anything
// already assigned to them, otherwise the most urgent queued request
// they qualify for. Skipped queue items keep their order. Nil means no
// work is available.
func (r *Router) NextFor(ctx context.Context, reviewerID string) (*model.ReviewRequest, error) {
	r.mu.Lock()

	profile, ok := r.reviewers[reviewerID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrUnknownReviewer
	}

	if ids := r.assigned[reviewerID]; len(ids) > 0 {
		req := r.active[ids[0]]
		r.mu.Unlock()
		return req, nil
	}

	r.rollLoadDay()
	var skipped []*queueItem
	var picked *model.ReviewRequest
	for {
		item := r.queue.pop()
		if item == nil {
			break
		}
		req := item.req
		overCap := profile.MaxDailyReviews > 0 && r.dailyLoad[reviewerID] >= profile.MaxDailyReviews
		if !overCap && profile.CanReview(req.Result.SourceLang, req.Result.TargetLang, req.MedicalCategory) {
			picked = req
			break
		}
		skipped = append(skipped, item)
	}
	// Requeue skipped items; original sequence numbers preserve order.
	for _, item := range skipped {
		r.queue.push(item)
	}
	if picked != nil {
		r.assign(picked, reviewerID)
	}
	r.mu.Unlock()

	if picked != nil {
		r.persistRequest(ctx, picked, true)
	}
	return picked, nil
}

// SubmitDecision retires a request with its decision, updates reviewer
// rolling stats, and handles escalation and correction learning.
func (r *Router) SubmitDecision(ctx context.Context, decision model.ReviewDecision) error {
	r.mu.Lock()
	req, ok := r.active[decision.RequestID]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownRequest
	}
	if decision.DecidedAt.IsZero() {
		decision.DecidedAt = r.now().UTC()
	}

	r.retire(req)
	req.State = model.ReviewStateCompleted

	r.updateReviewerStats(decision)

	var escalation *model.ReviewRequest
	if decision.Status == model.DecisionEscalated {
		escalation = r.escalate(req)
	}

	var pattern *model.CorrectionPattern
	if decision.Status == model.DecisionCorrected && decision.CorrectedText != "" {
		pattern = r.learn(req, decision)
	}
	r.mu.Unlock()

	r.persistRequest(ctx, req, true)
	r.persistDecision(ctx, &decision)
	if escalation != nil {
		r.persistRequest(ctx, escalation, false)
	}
	if pattern != nil && r.store != nil {
		if err := r.store.SaveCorrectionPattern(ctx, req.Result.SourceLang, req.Result.TargetLang, *pattern); err != nil {
			zap.L().Warn("correction pattern persistence failed", zap.Error(err))
		}
	}
	return nil
}

// retire removes a request from the queue, active set and assignment
// lists. Caller holds the lock.
func (r *Router) retire(req *model.ReviewRequest) {
	delete(r.active, req.ID)
	r.queue.remove(req.ID)
	if req.AssignedReviewer != "" {
		ids := r.assigned[req.AssignedReviewer]
		for i, id := range ids {
			if id == req.ID {
				r.assigned[req.AssignedReviewer] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}

// updateReviewerStats folds a decision into the reviewer's rolling
// aggregates. Caller holds the lock.
func (r *Router) updateReviewerStats(d model.ReviewDecision) {
	p, ok := r.reviewers[d.ReviewerID]
	if !ok {
		return
	}
	n := float64(p.Stats.ReviewsCompleted)
	p.Stats.ReviewsCompleted++
	p.Stats.AvgTimeSeconds = (p.Stats.AvgTimeSeconds*n + float64(d.TimeSpentSeconds)) / (n + 1)
	if d.QualityScore != nil {
		p.Stats.AvgQuality = (p.Stats.AvgQuality*n + *d.QualityScore) / (n + 1)
	}
	r.dailyLoad[d.ReviewerID]++
}

// escalate opens a new high-priority request referencing the original.
// Caller holds the lock.
func (r *Router) escalate(orig *model.ReviewRequest) *model.ReviewRequest {
	now := r.now()
	req := &model.ReviewRequest{
		ID:          uuid.NewString(),
		ResultID:    orig.ResultID,
		Result:      orig.Result,
		Priority:    model.PriorityHigh,
		Reason:      fmt.Sprintf("escalated from review %s", orig.ID),
		RequestedAt: now.UTC(),
		Deadline:    now.Add(r.cfg.ReviewTimeout).UTC(),
		State:       model.ReviewStatePending,
		Metadata:    map[string]any{"escalated_from": orig.ID},
	}
	r.active[req.ID] = req
	r.seq++
	r.queue.push(&queueItem{req: req, seq: r.seq})
	return req
}

// learn records a corrected decision as a learned pattern for the
// language pair. Caller holds the lock.
func (r *Router) learn(req *model.ReviewRequest, d model.ReviewDecision) *model.CorrectionPattern {
	pattern := model.CorrectionPattern{
		SourceText:      req.Result.SourceText,
		OriginalText:    req.Result.TranslatedText,
		CorrectedText:   d.CorrectedText,
		IssuesFound:     d.IssuesFound,
		MedicalCategory: req.MedicalCategory,
		LearnedAt:       d.DecidedAt,
	}
	key := pairKey(req.Result.SourceLang, req.Result.TargetLang)
	r.patterns[key] = append(r.patterns[key], pattern)
	return &pattern
}

// UpsertReviewer registers or updates a reviewer profile.
func (r *Router) UpsertReviewer(ctx context.Context, p *model.ReviewerProfile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.mu.Lock()
	r.reviewers[p.ID] = p
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveReviewer(ctx, p); err != nil {
			return eris.Wrap(err, "review: save reviewer")
		}
	}
	return nil
}

// Hydrate loads reviewers and open review requests from the store into
// the router. Used by short-lived processes that need queue state from
// a prior run.
func (r *Router) Hydrate(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	reviewers, err := r.store.ListReviewers(ctx)
	if err != nil {
		return eris.Wrap(err, "review: hydrate reviewers")
	}
	pending, err := r.store.ListReviewRequests(ctx, store.ReviewFilter{State: model.ReviewStatePending})
	if err != nil {
		return eris.Wrap(err, "review: hydrate pending requests")
	}
	assigned, err := r.store.ListReviewRequests(ctx, store.ReviewFilter{State: model.ReviewStateAssigned})
	if err != nil {
		return eris.Wrap(err, "review: hydrate assigned requests")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range reviewers {
		p := reviewers[i]
		r.reviewers[p.ID] = &p
	}
	for i := range pending {
		req := pending[i]
		if _, ok := r.active[req.ID]; ok {
			continue
		}
		r.active[req.ID] = &req
		r.seq++
		r.queue.push(&queueItem{req: &req, seq: r.seq})
	}
	for i := range assigned {
		req := assigned[i]
		if _, ok := r.active[req.ID]; ok {
			continue
		}
		r.active[req.ID] = &req
		r.assigned[req.AssignedReviewer] = append(r.assigned[req.AssignedReviewer], req.ID)
	}
	return nil
}

// Pending returns the queued-plus-assigned request count.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Sweep expires active requests past their deadline. Expired
// critical-priority requests are re-escalated with a fresh deadline.
func (r *Router) Sweep(ctx context.Context) {
	r.mu.Lock()
	now := r.now()
	var expired, reissued []*model.ReviewRequest
	for _, req := range r.active {
		if req.State == model.ReviewStateCompleted || now.Before(req.Deadline) {
			continue
		}
		r.retire(req)
		req.State = model.ReviewStateExpired
		expired = append(expired, req)
		if req.Priority == model.PriorityCritical {
			reissued = append(reissued, r.escalate(req))
		}
	}
	r.mu.Unlock()

	for _, req := range expired {
		zap.L().Warn("review request expired",
			zap.String("request_id", req.ID),
			zap.String("priority", string(req.Priority)),
		)
		r.persistRequest(ctx, req, true)
	}
	for _, req := range reissued {
		r.persistRequest(ctx, req, false)
	}
}

// Run sweeps on the configured interval until the context ends.
func (r *Router) Run(ctx context.Context) {
	interval := r.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Router) notifyAssignment(ctx context.Context, req *model.ReviewRequest, reviewerID string) {
	if r.sender == nil {
		return
	}
	msg := notify.Message{
		Title:    "translation review assigned",
		Body:     fmt.Sprintf("request %s (%s) assigned for review", req.ID, req.Priority),
		Severity: "info",
		Fields: map[string]string{
			"request_id": req.ID,
			"reviewer":   reviewerID,
			"deadline":   req.Deadline.Format(time.RFC3339),
		},
		SentAt: r.now().UTC(),
	}
	if err := r.sender.Send(ctx, msg); err != nil {
		zap.L().Warn("assignment notification failed",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
	}
}

func (r *Router) persistRequest(ctx context.Context, req *model.ReviewRequest, update bool) {
	if r.store == nil {
		return
	}
	var err error
	if update {
		err = r.store.UpdateReviewRequest(ctx, req)
	} else {
		err = r.store.SaveReviewRequest(ctx, req)
	}
	if err != nil {
		zap.L().Warn("review request persistence failed",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
	}
}

func (r *Router) persistDecision(ctx context.Context, d *model.ReviewDecision) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveDecision(ctx, d); err != nil {
		zap.L().Warn("review decision persistence failed",
			zap.String("request_id", d.RequestID),
			zap.Error(err),
		)
	}
}

func pairKey(sourceLang, targetLang string) string {
	return sourceLang + "->" + targetLang
}
