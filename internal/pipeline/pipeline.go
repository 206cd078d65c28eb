// Package pipeline orchestrates the validator set, the similarity
// scorer and the medical entity matcher into a single verdict per
// translation, with process-local result caching.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/confidence"
	"github.com/medlingo/transqa/internal/config"
	"github.com/medlingo/transqa/internal/medical"
	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/store"
	"github.com/medlingo/transqa/internal/textsim"
	"github.com/medlingo/transqa/internal/validators"
)

// severity weights for base-confidence discounting.
const (
	warningWeight = 0.9
	failedWeight  = 0.5
)

// ConfidenceStrategy scores a validated translation. The pipeline takes
// the strategy at construction time so callers can swap implementations.
type ConfidenceStrategy interface {
	Score(ctx context.Context, in confidence.Input) model.ConfidenceScore
}

// Pipeline validates (source, translation) pairs. Safe for concurrent
// use.
type Pipeline struct {
	opts       Options
	validators []validators.Validator
	sim        *textsim.Scorer
	confidence ConfidenceStrategy
	store      store.Store
	cache      *lru.Cache[string, model.Result]
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithValidators replaces the validator list.
func WithValidators(vs []validators.Validator) Option {
	return func(p *Pipeline) { p.validators = vs }
}

// WithSimilarityScorer injects the similarity scorer.
func WithSimilarityScorer(s *textsim.Scorer) Option {
	return func(p *Pipeline) { p.sim = s }
}

// WithConfidence attaches a confidence-scoring strategy.
func WithConfidence(c ConfidenceStrategy) Option {
	return func(p *Pipeline) { p.confidence = c }
}

// WithStore persists every result. Persistence failures are logged and
// never fail a validation.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. Zero-valued options fields get
// standard-level defaults.
func New(opts Options, popts ...Option) *Pipeline {
	if opts.Level == "" {
		opts = DefaultOptions(LevelStandard)
	}
	if opts.MinConfidenceThreshold <= 0 {
		opts.MinConfidenceThreshold = 0.7
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}

	p := &Pipeline{
		opts:       opts,
		validators: validators.Defaults(),
		sim:        textsim.NewScorer(textsim.WithDomainTerms(medical.DomainTerms())),
		now:        time.Now,
	}
	for _, opt := range popts {
		opt(p)
	}
	cache, _ := lru.New[string, model.Result](opts.CacheSize)
	p.cache = cache
	return p
}

// Validate checks one translation against its source. Validator errors
// degrade to warning issues; the only hard failures are context
// cancellation and timeout.
func (p *Pipeline) Validate(ctx context.Context, sourceText, translatedText, sourceLang, targetLang string) (*model.Result, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	sourceLang = normalizeLang(sourceLang)
	targetLang = normalizeLang(targetLang)

	key := model.ContentKey(sourceLang, targetLang, sourceText, translatedText)
	if p.opts.EnableCache {
		if cached, ok := p.cache.Get(key); ok {
			// Learning still happens on cache hits.
			if p.confidence != nil {
				p.confidence.Score(ctx, confidence.Input{
					SourceText:     sourceText,
					TranslatedText: translatedText,
					SourceLang:     sourceLang,
					TargetLang:     targetLang,
					Issues:         cached.Issues,
					ValidatorCount: p.enabledCount(),
				})
			}
			out := cached
			return &out, nil
		}
	}

	start := p.now()
	var issues []model.Issue
	checksRun := 0
	for _, v := range p.enabled() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: validation aborted")
		}
		checksRun++
		found, err := v.Validate(sourceText, translatedText, sourceLang, targetLang)
		if err != nil {
			zap.L().Warn("validator failed",
				zap.String("validator", v.Name()),
				zap.Error(err),
			)
			issues = append(issues, model.Issue{
				Validator:  v.Name(),
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("validator %s did not complete: %v", v.Name(), err),
				Confidence: 0.5,
			})
			continue
		}
		issues = append(issues, found...)
	}

	simScores := p.sim.ScoreAll(sourceText, translatedText, nil)

	med := medical.ValidateMedicalAccuracy(sourceText, translatedText)
	issues = append(issues, p.applyMedicalToggles(med.Issues)...)
	checksRun++

	metadata := map[string]any{
		"similarity_scores": simScores,
		"entity_match":      med.Match,
		"validation_level":  string(p.opts.Level),
	}
	if p.opts.CheckDrugInteractions {
		interactions := medical.CheckInteractions(medical.Extract(sourceText))
		metadata["drug_interactions"] = interactions
		for _, it := range interactions {
			issues = append(issues, model.Issue{
				Validator:  "drug_interactions",
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("source mentions interacting medications %s and %s: %s", it.DrugA, it.DrugB, it.Note),
				Confidence: 0.8,
			})
		}
	}

	result := &model.Result{
		ID:             uuid.NewString(),
		SourceText:     sourceText,
		TranslatedText: translatedText,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Issues:         issues,
		Metadata:       metadata,
		CreatedAt:      start.UTC(),
	}
	result.Metrics = p.metrics(result, simScores, med, checksRun, p.now().Sub(start))
	result.Status = p.status(result)

	if p.confidence != nil {
		detailed := p.confidence.Score(ctx, confidence.Input{
			SourceText:     sourceText,
			TranslatedText: translatedText,
			SourceLang:     sourceLang,
			TargetLang:     targetLang,
			Issues:         issues,
			ValidatorCount: p.enabledCount(),
			Similarity:     simScores,
			Medical:        &med,
		})
		metadata["confidence"] = detailed
	}

	if p.opts.EnableCache {
		p.cache.Add(key, *result)
	}
	if p.store != nil {
		if err := p.store.SaveResult(ctx, result); err != nil {
			zap.L().Warn("result persistence failed",
				zap.String("result_id", result.ID),
				zap.Error(err),
			)
		}
	}

	zap.L().Debug("validation complete",
		zap.String("result_id", result.ID),
		zap.String("pair", result.LangPair()),
		zap.String("status", string(result.Status)),
		zap.Int("issues", len(issues)),
	)
	return result, nil
}

// normalizeLang canonicalizes a language code, keeping the raw code
// when it does not parse so unknown codes still validate.
func normalizeLang(code string) string {
	norm, err := config.NormalizeLang(code)
	if err != nil {
		zap.L().Warn("language code not recognized",
			zap.String("code", code),
			zap.Error(err),
		)
		return code
	}
	return norm
}

// enabled returns the validators active under the current options.
func (p *Pipeline) enabled() []validators.Validator {
	on := map[string]bool{
		"medical_terms":       p.opts.EnableMedicalTerms,
		"numeric_consistency": p.opts.EnableNumeric,
		"format_preservation": p.opts.EnableFormat,
		"contextual":          p.opts.EnableContextual,
		"safety":              p.opts.EnableSafety,
	}
	var out []validators.Validator
	for _, v := range p.validators {
		enabled, known := on[v.Name()]
		if !known || enabled {
			out = append(out, v)
		}
	}
	return out
}

func (p *Pipeline) enabledCount() int {
	return len(p.enabled())
}

// applyMedicalToggles filters and reshapes entity-matcher issues per the
// medical options.
func (p *Pipeline) applyMedicalToggles(issues []model.Issue) []model.Issue {
	var out []model.Issue
	for _, is := range issues {
		entityType, _ := issueEntityType(is)
		switch entityType {
		case medical.EntityDosage:
			if !p.opts.VerifyDosageAccuracy {
				continue
			}
		case medical.EntityAllergy:
			if !p.opts.CheckAllergyInfo {
				continue
			}
		}
		if !p.opts.RequireTermPreservation && is.Severity == model.SeverityFailed &&
			entityType != medical.EntityDosage && entityType != medical.EntityAllergy {
			is.Severity = model.SeverityWarning
		}
		out = append(out, is)
	}
	return out
}

// issueEntityType recovers the entity type an entity-matcher issue
// refers to from its message prefix.
func issueEntityType(is model.Issue) (medical.EntityType, bool) {
	for _, t := range []medical.EntityType{
		medical.EntityMedication, medical.EntityDosage, medical.EntityFrequency,
		medical.EntityLabValue, medical.EntityVitalSign, medical.EntityCode,
		medical.EntityAllergy, medical.EntityContraindication,
	} {
		if len(is.Message) >= len(t) && is.Message[:len(t)] == string(t) {
			return t, true
		}
	}
	return "", false
}

// metrics builds the aggregate snapshot for one run.
func (p *Pipeline) metrics(r *model.Result, sim map[textsim.Metric]textsim.Score, med medical.AccuracyResult, checksRun int, elapsed time.Duration) model.Metrics {
	worst := make(map[string]model.Severity)
	for _, is := range r.Issues {
		if is.Severity.Worse(worst[is.Validator]) {
			worst[is.Validator] = is.Severity
		}
	}
	failed, warned := 0, 0
	for _, sev := range worst {
		switch sev {
		case model.SeverityFailed:
			failed++
		case model.SeverityWarning:
			warned++
		}
	}

	m := model.Metrics{
		TotalValidations: checksRun,
		Passed:           checksRun - failed - warned,
		Failed:           failed,
		Warnings:         warned,
		ConfidenceScore:  p.baseConfidence(r.Issues),
		ValidationTimeMS: elapsed.Milliseconds(),
	}

	if cos, ok := sim[textsim.MetricCosine]; ok {
		v := cos.Value
		m.SemanticSimilarity = &v
	}
	term := med.Match.PreservationRatio()
	m.TerminologyAccuracy = &term
	format := formatScore(r.Issues)
	m.FormatPreservation = &format
	return m
}

// baseConfidence applies severity-weighted issue discounting: each
// issue multiplies the running confidence by its severity weight scaled
// by the issue's own confidence.
func (p *Pipeline) baseConfidence(issues []model.Issue) float64 {
	conf := 1.0
	for _, is := range issues {
		switch is.Severity {
		case model.SeverityWarning:
			conf *= warningWeight * is.Confidence
		case model.SeverityFailed:
			conf *= failedWeight * is.Confidence
		}
	}
	return conf
}

func formatScore(issues []model.Issue) float64 {
	score := 1.0
	for _, is := range issues {
		if is.Validator != "format_preservation" {
			continue
		}
		switch is.Severity {
		case model.SeverityFailed:
			score -= 0.3
		case model.SeverityWarning:
			score -= 0.1
		}
	}
	if score < 0 {
		return 0
	}
	return score
}

// status derives the overall verdict from issue counts and the base
// confidence.
func (p *Pipeline) status(r *model.Result) model.Status {
	switch {
	case r.ErrorCount() > p.opts.MaxErrors:
		return model.StatusFailed
	case r.WarningCount() > p.opts.MaxWarnings,
		r.Metrics.ConfidenceScore < p.opts.MinConfidenceThreshold:
		return model.StatusWarning
	default:
		return model.StatusPassed
	}
}
