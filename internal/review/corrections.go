package review

import (
	"context"

	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/textsim"
)

// Correction is a learned-pattern match for a translation.
type Correction struct {
	CorrectedText         string                  `json:"corrected_text"`
	Pattern               model.CorrectionPattern `json:"pattern"`
	SourceSimilarity      float64                 `json:"source_similarity"`
	TranslationSimilarity float64                 `json:"translation_similarity"`
}

// ApplyCorrections looks a translation up against the learned patterns
// for its language pair. It returns nil until at least
// MinReviewsForLearning patterns exist for the pair, then returns the
// first pattern whose source and original-translation similarities
// clear the configured gates.
func (r *Router) ApplyCorrections(ctx context.Context, sourceText, translatedText, sourceLang, targetLang string) *Correction {
	key := pairKey(sourceLang, targetLang)

	r.mu.Lock()
	patterns := r.patterns[key]
	r.mu.Unlock()

	if len(patterns) == 0 && r.store != nil {
		loaded, err := r.store.ListCorrectionPatterns(ctx, sourceLang, targetLang)
		if err != nil {
			zap.L().Warn("correction pattern lookup failed",
				zap.String("pair", key),
				zap.Error(err),
			)
		} else if len(loaded) > 0 {
			r.mu.Lock()
			r.patterns[key] = loaded
			r.mu.Unlock()
			patterns = loaded
		}
	}

	if len(patterns) < r.cfg.MinReviewsForLearning {
		return nil
	}

	for _, p := range patterns {
		srcSim := textsim.LevenshteinRatio(sourceText, p.SourceText)
		if srcSim <= r.cfg.SourceSimilarityGate {
			continue
		}
		dstSim := textsim.LevenshteinRatio(translatedText, p.OriginalText)
		if dstSim <= r.cfg.TranslationSimilarityGate {
			continue
		}
		return &Correction{
			CorrectedText:         p.CorrectedText,
			Pattern:               p,
			SourceSimilarity:      srcSim,
			TranslationSimilarity: dstSim,
		}
	}
	return nil
}
