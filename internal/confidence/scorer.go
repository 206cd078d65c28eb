// Package confidence computes multi-factor confidence scores for
// validated translations. Ten weighted factors contribute to an overall
// score in [0,1]; the uncertainty factor carries a negative weight and
// acts as a penalty.
package confidence

import (
	"context"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/medical"
	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/store"
	"github.com/medlingo/transqa/internal/textsim"
)

// Weights assigns the contribution of each factor. Uncertainty is
// negative: a high uncertainty score lowers the overall confidence.
type Weights struct {
	LinguisticQuality    float64 `yaml:"linguistic_quality" mapstructure:"linguistic_quality"`
	MedicalAccuracy      float64 `yaml:"medical_accuracy" mapstructure:"medical_accuracy"`
	SemanticSimilarity   float64 `yaml:"semantic_similarity" mapstructure:"semantic_similarity"`
	TerminologyPrecision float64 `yaml:"terminology_precision" mapstructure:"terminology_precision"`
	Context              float64 `yaml:"context" mapstructure:"context"`
	History              float64 `yaml:"history" mapstructure:"history"`
	ValidatorAgreement   float64 `yaml:"validator_agreement" mapstructure:"validator_agreement"`
	Complexity           float64 `yaml:"complexity" mapstructure:"complexity"`
	CriticalContent      float64 `yaml:"critical_content" mapstructure:"critical_content"`
	Uncertainty          float64 `yaml:"uncertainty" mapstructure:"uncertainty"`
}

// DefaultWeights returns the calibrated factor weights.
func DefaultWeights() Weights {
	return Weights{
		LinguisticQuality:    0.15,
		MedicalAccuracy:      0.20,
		SemanticSimilarity:   0.15,
		TerminologyPrecision: 0.10,
		Context:              0.05,
		History:              0.10,
		ValidatorAgreement:   0.10,
		Complexity:           0.05,
		CriticalContent:      0.05,
		Uncertainty:          -0.05,
	}
}

// Config controls the confidence scorer.
type Config struct {
	Weights                Weights
	DecayFactor            float64
	MinHistoryForLearning  int
	HumanReviewThreshold   float64
	HistoryWindow          int
	UncertaintyMarkerLimit int
	CacheSize              int
	LearningEnabled        bool
}

// DefaultConfig returns the scorer defaults.
func DefaultConfig() Config {
	return Config{
		Weights:                DefaultWeights(),
		DecayFactor:            0.95,
		MinHistoryForLearning:  5,
		HumanReviewThreshold:   0.75,
		HistoryWindow:          20,
		UncertaintyMarkerLimit: 3,
		CacheSize:              1024,
		LearningEnabled:        true,
	}
}

// History provides per-language-pair confidence observations.
type History interface {
	RecentPairScores(ctx context.Context, sourceLang, targetLang string, limit int) ([]store.PairScore, error)
	AppendPairScore(ctx context.Context, sourceLang, targetLang string, score float64) error
}

// Input carries everything the scorer needs for one translation.
type Input struct {
	SourceText     string
	TranslatedText string
	SourceLang     string
	TargetLang     string

	// Issues are the validator findings for this translation.
	Issues []model.Issue

	// ValidatorCount is the number of validators that ran. Zero means
	// the standard set of five.
	ValidatorCount int

	// Similarity holds precomputed similarity scores. Nil means the
	// scorer computes its own.
	Similarity map[textsim.Metric]textsim.Score

	// Medical holds a precomputed entity accuracy result. Nil means
	// the scorer computes its own.
	Medical *medical.AccuracyResult
}

// Scorer computes confidence scores. Safe for concurrent use.
type Scorer struct {
	cfg     Config
	history History
	sim     *textsim.Scorer
	cache   *lru.Cache[string, model.ConfidenceScore]
	now     func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithHistory attaches a language-pair history backend.
func WithHistory(h History) Option {
	return func(s *Scorer) { s.history = h }
}

// WithSimilarityScorer injects the similarity scorer used when the
// caller supplies no precomputed scores.
func WithSimilarityScorer(sim *textsim.Scorer) Option {
	return func(s *Scorer) { s.sim = sim }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// New creates a Scorer.
func New(cfg Config, opts ...Option) *Scorer {
	if cfg.DecayFactor <= 0 || cfg.DecayFactor > 1 {
		cfg.DecayFactor = 0.95
	}
	if cfg.HumanReviewThreshold <= 0 {
		cfg.HumanReviewThreshold = 0.75
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 20
	}
	if cfg.UncertaintyMarkerLimit <= 0 {
		cfg.UncertaintyMarkerLimit = 3
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}

	s := &Scorer{
		cfg: cfg,
		sim: textsim.NewScorer(textsim.WithDomainTerms(medical.DomainTerms())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, _ := lru.New[string, model.ConfidenceScore](cfg.CacheSize)
	s.cache = cache
	return s
}

// Score computes the confidence score for one translation. It never
// fails: missing inputs degrade individual factors instead.
func (s *Scorer) Score(ctx context.Context, in Input) model.ConfidenceScore {
	key := model.ContentKey(in.SourceLang, in.TargetLang, in.SourceText, in.TranslatedText)
	if cached, ok := s.cache.Get(key); ok {
		// History learns from every call, cached or not.
		s.recordHistory(ctx, in, cached.Overall)
		return cached
	}

	med := in.Medical
	if med == nil {
		r := medical.ValidateMedicalAccuracy(in.SourceText, in.TranslatedText)
		med = &r
	}
	sim := in.Similarity
	if sim == nil {
		sim = s.sim.ScoreAll(in.SourceText, in.TranslatedText, nil)
	}

	w := s.cfg.Weights
	factors := []model.Factor{
		linguisticQuality(in.Issues, w.LinguisticQuality),
		medicalAccuracy(med, in.Issues, w.MedicalAccuracy),
		semanticSimilarity(sim, w.SemanticSimilarity),
		terminologyPrecision(med, in.Issues, w.TerminologyPrecision),
		contextFactor(in.Issues, w.Context),
		s.historyFactor(ctx, in.SourceLang, in.TargetLang, w.History),
		validatorAgreement(in.Issues, in.ValidatorCount, w.ValidatorAgreement),
		complexityFactor(in.SourceText, med, w.Complexity),
		criticalContent(in.SourceText, in.Issues, w.CriticalContent),
		uncertaintyFactor(in.TranslatedText, s.cfg.UncertaintyMarkerLimit, w.Uncertainty),
	}

	var total, weightSum float64
	for _, f := range factors {
		total += f.Score * f.Weight
		weightSum += math.Abs(f.Weight)
	}
	overall := 0.0
	if weightSum > 0 {
		overall = clamp01(total / weightSum)
	}

	score := model.ConfidenceScore{
		Overall:      overall,
		Linguistic:   subScore(factors, model.FactorLinguisticQuality, model.FactorSemanticSimilarity),
		Medical:      subScore(factors, model.FactorMedicalAccuracy, model.FactorTerminologyPrecision, model.FactorCriticalContent),
		Contextual:   subScore(factors, model.FactorContext, model.FactorHistory, model.FactorComplexity),
		Category:     categorize(overall),
		Factors:      factors,
		CalculatedAt: s.now().UTC(),
	}

	score.HighRiskFactors = highRiskFactors(factors)
	score.Suggestions = suggestions(factors, in.Issues)
	score.RequiresHumanReview = s.requiresReview(score, factors)

	s.recordHistory(ctx, in, overall)
	s.cache.Add(key, score)
	return score
}

func (s *Scorer) requiresReview(score model.ConfidenceScore, factors []model.Factor) bool {
	review := false
	switch score.Category {
	case model.CategoryHigh:
		review = false
	case model.CategoryMedium:
		review = score.Overall < s.cfg.HumanReviewThreshold
	default:
		review = true
	}

	// Critical content detection forces review unless confidence is
	// already high.
	if !review && score.Category != model.CategoryHigh {
		for _, f := range factors {
			if f.Type == model.FactorCriticalContent && f.Score < 1.0 {
				review = true
				break
			}
		}
	}
	return review
}

func (s *Scorer) historyFactor(ctx context.Context, sourceLang, targetLang string, weight float64) model.Factor {
	f := model.Factor{
		Type:        model.FactorHistory,
		Score:       0.5,
		Weight:      weight,
		Explanation: "no language pair history",
	}
	if s.history == nil {
		return f
	}

	scores, err := s.history.RecentPairScores(ctx, sourceLang, targetLang, s.cfg.HistoryWindow)
	if err != nil {
		zap.L().Warn("pair history lookup failed",
			zap.String("source_lang", sourceLang),
			zap.String("target_lang", targetLang),
			zap.Error(err),
		)
		return f
	}
	if len(scores) < s.cfg.MinHistoryForLearning {
		f.Explanation = "insufficient language pair history"
		f.Metadata = map[string]any{"observations": len(scores)}
		return f
	}

	// Exponentially decayed mean, newest observation first.
	var sum, weightTotal float64
	decay := 1.0
	for _, ps := range scores {
		sum += ps.Score * decay
		weightTotal += decay
		decay *= s.cfg.DecayFactor
	}
	f.Score = clamp01(sum / weightTotal)
	f.Explanation = "decayed mean of recent pair outcomes"
	f.Metadata = map[string]any{"observations": len(scores)}
	return f
}

func (s *Scorer) recordHistory(ctx context.Context, in Input, overall float64) {
	if !s.cfg.LearningEnabled || s.history == nil {
		return
	}
	if err := s.history.AppendPairScore(ctx, in.SourceLang, in.TargetLang, overall); err != nil {
		zap.L().Warn("pair history append failed",
			zap.String("source_lang", in.SourceLang),
			zap.String("target_lang", in.TargetLang),
			zap.Error(err),
		)
	}
}

func categorize(overall float64) model.Category {
	switch {
	case overall >= 0.85:
		return model.CategoryHigh
	case overall >= 0.70:
		return model.CategoryMedium
	case overall >= 0.50:
		return model.CategoryLow
	default:
		return model.CategoryVeryLow
	}
}

func subScore(factors []model.Factor, types ...model.FactorType) float64 {
	want := make(map[model.FactorType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var sum float64
	var n int
	for _, f := range factors {
		if want[f.Type] {
			sum += f.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func highRiskFactors(factors []model.Factor) []string {
	var risks []string
	for _, f := range factors {
		if f.Weight > 0 && f.Score < 0.5 {
			risks = append(risks, string(f.Type))
		}
		if f.Weight < 0 && f.Score > 0.5 {
			risks = append(risks, string(f.Type))
		}
	}
	return risks
}

// suggestionTexts maps each factor to the advice shown when it scores
// poorly.
var suggestionTexts = map[model.FactorType]string{
	model.FactorLinguisticQuality:    "review sentence structure and formatting in the translation",
	model.FactorMedicalAccuracy:      "verify all medications, dosages and clinical values against the source",
	model.FactorSemanticSimilarity:   "check that the translation conveys the same meaning as the source",
	model.FactorTerminologyPrecision: "confirm medical terminology uses approved target-language equivalents",
	model.FactorContext:              "check the translation fits the clinical context of the source",
	model.FactorHistory:              "this language pair has a weak track record; sample past translations",
	model.FactorValidatorAgreement:   "validators disagree; inspect the individual findings",
	model.FactorComplexity:           "source text is complex; consider segmenting before translation",
	model.FactorCriticalContent:      "critical safety content may be missing; escalate to a clinical reviewer",
	model.FactorUncertainty:          "translation contains hedging language absent from the source",
}

func suggestions(factors []model.Factor, issues []model.Issue) []string {
	const maxSuggestions = 5
	var out []string
	for _, f := range factors {
		poor := (f.Weight > 0 && f.Score < 0.7) || (f.Weight < 0 && f.Score > 0.5)
		if !poor {
			continue
		}
		if text, ok := suggestionTexts[f.Type]; ok {
			out = append(out, text)
		}
		if len(out) == maxSuggestions {
			return out
		}
	}

	counts := model.CountBySeverity(issues)
	if n := counts[model.SeverityFailed]; n > 0 && len(out) < maxSuggestions {
		out = append(out, fmt.Sprintf("resolve %d outstanding validation error(s)", n))
	}
	if n := counts[model.SeverityWarning]; n > 0 && len(out) < maxSuggestions {
		out = append(out, fmt.Sprintf("address %d outstanding warning(s)", n))
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
