// Package backtranslate re-translates pipeline output back into the
// source language and compares it to the original as a secondary
// accuracy signal.
package backtranslate

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medlingo/transqa/internal/config"
	"github.com/medlingo/transqa/internal/medical"
	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/resilience"
	"github.com/medlingo/transqa/internal/textsim"
	"github.com/medlingo/transqa/pkg/translator"
)

// Method selects the back-translation strategy.
type Method string

const (
	MethodDirect    Method = "direct"
	MethodPivot     Method = "pivot"
	MethodEnsemble  Method = "ensemble"
	MethodIterative Method = "iterative"
)

// Config controls the checker.
type Config struct {
	Method         Method
	PivotLang      string
	EnsembleSize   int
	Voting         string
	MaxIterations  int
	AttemptTimeout time.Duration
	MaxRetries     int

	// LengthTolerance is the allowed deviation of the back-translated
	// length ratio from 1.0 before a warning is raised.
	LengthTolerance float64

	// MinConfidence is the acceptance floor.
	MinConfidence float64
}

// DefaultConfig returns the checker defaults.
func DefaultConfig() Config {
	return Config{
		Method:          MethodDirect,
		EnsembleSize:    3,
		Voting:          "weighted",
		MaxIterations:   3,
		AttemptTimeout:  20 * time.Second,
		MaxRetries:      2,
		LengthTolerance: 0.3,
		MinConfidence:   0.7,
	}
}

// FromConfig builds a checker Config from the loaded configuration.
func FromConfig(cfg config.BackTranslateConfig) Config {
	c := DefaultConfig()
	if cfg.Method != "" {
		c.Method = Method(cfg.Method)
	}
	c.PivotLang = cfg.PivotLang
	if cfg.EnsembleSize > 0 {
		c.EnsembleSize = cfg.EnsembleSize
	}
	if cfg.Voting != "" {
		c.Voting = cfg.Voting
	}
	if cfg.MaxIterations > 0 {
		c.MaxIterations = cfg.MaxIterations
	}
	if cfg.AttemptTimeoutSecs > 0 {
		c.AttemptTimeout = time.Duration(cfg.AttemptTimeoutSecs) * time.Second
	}
	if cfg.MaxRetries > 0 {
		c.MaxRetries = cfg.MaxRetries
	}
	if cfg.LengthTolerance > 0 {
		c.LengthTolerance = cfg.LengthTolerance
	}
	if cfg.MinConfidence > 0 {
		c.MinConfidence = cfg.MinConfidence
	}
	return c
}

// Result is the outcome of one back-translation check.
type Result struct {
	Method         Method                           `json:"method"`
	BackTranslated string                           `json:"back_translated"`
	Similarity     map[textsim.Metric]textsim.Score `json:"similarity,omitempty"`
	Issues         []model.Issue                    `json:"issues,omitempty"`
	Confidence     float64                          `json:"confidence"`
	Acceptable     bool                             `json:"acceptable"`
	ElapsedMS      int64                            `json:"elapsed_ms"`
}

// Checker runs back-translation checks. Safe for concurrent use.
type Checker struct {
	client translator.Client
	sim    *textsim.Scorer
	cfg    Config
	retry  resilience.Policy
}

// Option configures a Checker.
type Option func(*Checker)

// WithSimilarityScorer injects the similarity scorer.
func WithSimilarityScorer(s *textsim.Scorer) Option {
	return func(c *Checker) { c.sim = s }
}

// New creates a Checker over a translation client.
func New(client translator.Client, cfg Config, opts ...Option) *Checker {
	if cfg.Method == "" {
		cfg = DefaultConfig()
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.7
	}
	if cfg.LengthTolerance <= 0 {
		cfg.LengthTolerance = 0.3
	}
	c := &Checker{
		client: client,
		sim:    textsim.NewScorer(textsim.WithDomainTerms(medical.DomainTerms())),
		cfg:    cfg,
		retry:  resilience.PolicyFor(cfg.MaxRetries, 500*time.Millisecond),
	}
	c.retry.OnRetry = resilience.LogRetries("translator", "back_translate")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check back-translates translatedText and compares it to sourceText.
// A translation-chain failure yields a result with a single failed
// issue and empty text; Check itself only fails on a cancelled context.
func (c *Checker) Check(ctx context.Context, sourceText, translatedText, sourceLang, targetLang string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "backtranslate: check aborted")
	}
	start := time.Now()

	back, err := c.run(ctx, translatedText, sourceLang, targetLang)
	if err != nil {
		zap.L().Warn("back-translation chain failed",
			zap.String("method", string(c.cfg.Method)),
			zap.String("pair", sourceLang+"->"+targetLang),
			zap.Error(err),
		)
		return &Result{
			Method: c.cfg.Method,
			Issues: []model.Issue{{
				Validator:  "back_translation",
				Severity:   model.SeverityFailed,
				Message:    fmt.Sprintf("back-translation chain failed: %v", err),
				Confidence: 0.9,
			}},
			ElapsedMS: time.Since(start).Milliseconds(),
		}, nil
	}

	res := &Result{
		Method:         c.cfg.Method,
		BackTranslated: back,
		Similarity:     c.sim.ScoreAll(sourceText, back, nil),
	}
	res.Issues = c.analyze(sourceText, back)
	res.Confidence = c.confidence(res)
	res.Acceptable = res.Confidence >= c.cfg.MinConfidence && countSeverity(res.Issues, model.SeverityFailed) == 0
	res.ElapsedMS = time.Since(start).Milliseconds()
	return res, nil
}

// Item is one batch check input.
type Item struct {
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"`
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
}

// CheckBatch runs checks concurrently with bounded parallelism.
// Results keep input order.
func (c *Checker) CheckBatch(ctx context.Context, items []Item, parallelism int) ([]*Result, error) {
	if parallelism <= 0 {
		parallelism = 4
	}
	results := make([]*Result, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, item := range items {
		g.Go(func() error {
			res, err := c.Check(ctx, item.SourceText, item.TranslatedText, item.SourceLang, item.TargetLang)
			if err != nil {
				return eris.Wrapf(err, "backtranslate: batch item %d", i)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// run executes the configured back-translation method.
func (c *Checker) run(ctx context.Context, translated, sourceLang, targetLang string) (string, error) {
	switch c.cfg.Method {
	case MethodPivot:
		return c.pivot(ctx, translated, sourceLang, targetLang)
	case MethodEnsemble:
		return c.ensemble(ctx, translated, sourceLang, targetLang)
	case MethodIterative:
		return c.iterative(ctx, translated, sourceLang, targetLang)
	default:
		return c.translate(ctx, translated, targetLang, sourceLang, "")
	}
}

// pivotLang picks the intermediate language: English unless English is
// already an endpoint, then Spanish. An explicit config value wins.
func (c *Checker) pivotLang(sourceLang, targetLang string) string {
	if c.cfg.PivotLang != "" {
		return c.cfg.PivotLang
	}
	if sourceLang == "en" || targetLang == "en" {
		return "es"
	}
	return "en"
}

func (c *Checker) pivot(ctx context.Context, translated, sourceLang, targetLang string) (string, error) {
	pivot := c.pivotLang(sourceLang, targetLang)
	mid, err := c.translate(ctx, translated, targetLang, pivot, "")
	if err != nil {
		return "", err
	}
	return c.translate(ctx, mid, pivot, sourceLang, "")
}

// ensemble runs independent back-translations on distinct engine
// variants. Weighted voting picks the candidate most similar to the
// original; majority voting takes the first success.
func (c *Checker) ensemble(ctx context.Context, translated, sourceLang, targetLang string) (string, error) {
	var candidates []string
	var lastErr error
	for i := 0; i < c.cfg.EnsembleSize; i++ {
		back, err := c.translate(ctx, translated, targetLang, sourceLang, fmt.Sprintf("variant-%d", i))
		if err != nil {
			lastErr = err
			continue
		}
		if c.cfg.Voting == "majority" {
			return back, nil
		}
		candidates = append(candidates, back)
	}
	if len(candidates) == 0 {
		if lastErr == nil {
			lastErr = eris.New("backtranslate: empty ensemble")
		}
		return "", lastErr
	}

	best := candidates[0]
	bestScore := -1.0
	for _, cand := range candidates {
		scores := c.sim.ScoreAll(translated, cand, []textsim.Metric{textsim.MetricCosine, textsim.MetricMedical})
		s := textsim.Composite(scores, map[textsim.Metric]float64{
			textsim.MetricCosine:  0.5,
			textsim.MetricMedical: 0.5,
		})
		if s > bestScore {
			bestScore = s
			best = cand
		}
	}
	return best, nil
}

// iterative alternates translation direction for up to MaxIterations
// rounds and keeps the last text that landed back in the source
// language.
func (c *Checker) iterative(ctx context.Context, translated, sourceLang, targetLang string) (string, error) {
	text, lang := translated, targetLang
	result := ""
	for i := 0; i < c.cfg.MaxIterations; i++ {
		next := sourceLang
		if lang == sourceLang {
			next = targetLang
		}
		out, err := c.translate(ctx, text, lang, next, "")
		if err != nil {
			return "", err
		}
		text, lang = out, next
		if lang == sourceLang {
			result = text
		}
	}
	if result == "" {
		return "", eris.New("backtranslate: iteration never returned to source language")
	}
	return result, nil
}

// translate performs one backend call with per-attempt timeout and
// bounded retry.
func (c *Checker) translate(ctx context.Context, text, from, to, variant string) (string, error) {
	return resilience.DoValue(ctx, c.retry, func(ctx context.Context) (string, error) {
		attemptCtx := ctx
		if c.cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
			defer cancel()
		}
		resp, err := c.client.Translate(attemptCtx, translator.Request{
			Text:       text,
			SourceLang: from,
			TargetLang: to,
			Model:      variant,
		})
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	})
}

func countSeverity(issues []model.Issue, sev model.Severity) int {
	n := 0
	for _, is := range issues {
		if is.Severity == sev {
			n++
		}
	}
	return n
}
