// Package textsim computes text similarity metrics between a source text
// and its translation. Every metric returns a value in [0,1]; a metric
// that fails to compute yields a zero score with the error captured in
// its details rather than aborting the caller.
package textsim

import (
	"fmt"
	"math"
	"strings"

	"github.com/agext/levenshtein"
)

// Metric identifies one similarity measure.
type Metric string

const (
	MetricExact       Metric = "exact_match"
	MetricLevenshtein Metric = "levenshtein"
	MetricCosine      Metric = "cosine"
	MetricJaccard     Metric = "jaccard"
	MetricBLEU        Metric = "bleu"
	MetricMedical     Metric = "medical_weighted"
)

// AllMetrics lists every supported metric in evaluation order.
var AllMetrics = []Metric{
	MetricExact, MetricLevenshtein, MetricCosine,
	MetricJaccard, MetricBLEU, MetricMedical,
}

// Score is the outcome of one metric computation.
type Score struct {
	Value      float64        `json:"value"`
	Confidence float64        `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
}

// Embedder computes a general-purpose semantic similarity in [0,1].
// The heuristic default uses token overlap; callers may inject a real
// sentence-embedding backend.
type Embedder interface {
	Similarity(a, b string) (float64, error)
}

// HeuristicEmbedder approximates semantic similarity with token-set
// overlap. It is the default when no embedding backend is configured.
type HeuristicEmbedder struct{}

// Similarity returns the Jaccard overlap of the token sets.
func (HeuristicEmbedder) Similarity(a, b string) (float64, error) {
	return jaccard(tokenSet(a), tokenSet(b)), nil
}

// Scorer evaluates similarity metrics between text pairs.
type Scorer struct {
	embedder    Embedder
	domainTerms []string
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithEmbedder injects a semantic similarity backend.
func WithEmbedder(e Embedder) Option {
	return func(s *Scorer) { s.embedder = e }
}

// WithDomainTerms sets the vocabulary used by the medical-weighted metric.
func WithDomainTerms(terms []string) Option {
	return func(s *Scorer) { s.domainTerms = terms }
}

// NewScorer creates a Scorer with the heuristic embedder by default.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{embedder: HeuristicEmbedder{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreAll computes the requested metrics for a text pair. Unknown
// metrics and metric failures produce zero-score entries; ScoreAll never
// returns an error.
func (s *Scorer) ScoreAll(source, translated string, metrics []Metric) map[Metric]Score {
	if len(metrics) == 0 {
		metrics = AllMetrics
	}
	out := make(map[Metric]Score, len(metrics))
	for _, m := range metrics {
		out[m] = s.scoreOne(source, translated, m)
	}
	return out
}

func (s *Scorer) scoreOne(source, translated string, m Metric) Score {
	switch m {
	case MetricExact:
		v := 0.0
		if strings.TrimSpace(source) == strings.TrimSpace(translated) {
			v = 1.0
		}
		return Score{Value: v, Confidence: 1.0}
	case MetricLevenshtein:
		return Score{Value: LevenshteinRatio(source, translated), Confidence: 0.9}
	case MetricCosine:
		return Score{Value: cosine(tokenCounts(source), tokenCounts(translated)), Confidence: 0.8}
	case MetricJaccard:
		return Score{Value: jaccard(tokenSet(source), tokenSet(translated)), Confidence: 0.8}
	case MetricBLEU:
		return Score{Value: bleu1(source, translated), Confidence: 0.7}
	case MetricMedical:
		return s.medicalWeighted(source, translated)
	default:
		return Score{Details: map[string]any{"error": fmt.Sprintf("unknown metric %q", m)}}
	}
}

// LevenshteinRatio is 1 minus the normalized edit distance.
func LevenshteinRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	d := levenshtein.Distance(a, b, nil)
	return 1.0 - float64(d)/float64(maxLen)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func cosine(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		if len(a) == 0 && len(b) == 0 {
			return 1.0
		}
		return 0
	}
	var dot, normA, normB float64
	for tok, ca := range a {
		normA += float64(ca * ca)
		if cb, ok := b[tok]; ok {
			dot += float64(ca * cb)
		}
	}
	for _, cb := range b {
		normB += float64(cb * cb)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// bleu1 is a simplified BLEU: unigram precision times brevity penalty.
func bleu1(reference, candidate string) float64 {
	refCounts := tokenCounts(reference)
	candToks := Tokenize(candidate)
	if len(candToks) == 0 {
		return 0
	}
	matched := 0
	remaining := make(map[string]int, len(refCounts))
	for tok, c := range refCounts {
		remaining[tok] = c
	}
	for _, tok := range candToks {
		tok = strings.Trim(tok, ".,")
		if remaining[tok] > 0 {
			matched++
			remaining[tok]--
		}
	}
	precision := float64(matched) / float64(len(candToks))

	refLen := len(Tokenize(reference))
	brevity := 1.0
	if len(candToks) < refLen && refLen > 0 {
		brevity = math.Exp(1.0 - float64(refLen)/float64(len(candToks)))
	}
	return precision * brevity
}

// medicalWeighted blends domain-term preservation with the general
// embedding similarity: 0.7 x term overlap + 0.3 x general overlap.
func (s *Scorer) medicalWeighted(source, translated string) Score {
	general, err := s.embedder.Similarity(source, translated)
	if err != nil {
		return Score{Details: map[string]any{"error": err.Error()}}
	}

	srcLower := strings.ToLower(source)
	dstLower := strings.ToLower(translated)
	var present, preserved int
	for _, term := range s.domainTerms {
		t := strings.ToLower(term)
		if strings.Contains(srcLower, t) {
			present++
			if strings.Contains(dstLower, t) {
				preserved++
			}
		}
	}
	termOverlap := 1.0
	if present > 0 {
		termOverlap = float64(preserved) / float64(present)
	}

	return Score{
		Value:      0.7*termOverlap + 0.3*general,
		Confidence: 0.85,
		Details: map[string]any{
			"terms_present":   present,
			"terms_preserved": preserved,
			"general_overlap": general,
		},
	}
}

// Composite combines metric scores into a single value: the weighted sum
// of metric values, each weight additionally scaled by that metric's own
// confidence, normalized by the total effective weight.
func Composite(scores map[Metric]Score, weights map[Metric]float64) float64 {
	var total, weightSum float64
	for m, sc := range scores {
		w, ok := weights[m]
		if !ok || w <= 0 {
			continue
		}
		effective := w * sc.Confidence
		total += sc.Value * effective
		weightSum += effective
	}
	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}
