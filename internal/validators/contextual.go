package validators

import (
	"fmt"
	"strings"

	"github.com/medlingo/transqa/internal/model"
)

// ContextualValidator flags translations that are structurally
// implausible: extreme length ratios, repeated-word runs, and source
// words left untranslated.
type ContextualValidator struct {
	MinLengthRatio     float64
	MaxLengthRatio     float64
	RepeatRunLength    int
	UntranslatedRatio  float64
	MinUntranslatedLen int
}

// NewContextualValidator returns a contextual validator with the default
// thresholds (0.5x-2.0x length, runs of 3, 30% untranslated).
func NewContextualValidator() *ContextualValidator {
	return &ContextualValidator{
		MinLengthRatio:     0.5,
		MaxLengthRatio:     2.0,
		RepeatRunLength:    3,
		UntranslatedRatio:  0.3,
		MinUntranslatedLen: 5,
	}
}

func (v *ContextualValidator) Name() string { return "contextual" }

// Validate implements Validator.
func (v *ContextualValidator) Validate(source, translated, sourceLang, targetLang string) ([]model.Issue, error) {
	var issues []model.Issue

	srcLen := len(strings.TrimSpace(source))
	dstLen := len(strings.TrimSpace(translated))
	if srcLen > 0 {
		ratio := float64(dstLen) / float64(srcLen)
		if ratio < v.MinLengthRatio || ratio > v.MaxLengthRatio {
			issues = append(issues, model.Issue{
				Validator:  v.Name(),
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("translation length ratio %.2f outside expected range [%.1f, %.1f]", ratio, v.MinLengthRatio, v.MaxLengthRatio),
				Confidence: 0.8,
			})
		}
	}

	if word, run := longestRepeatRun(translated); run >= v.RepeatRunLength {
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("word %q repeated %d times consecutively", word, run),
			Confidence: 0.9,
		})
	}

	// Verbatim-untranslated ratio only applies across languages.
	if !strings.EqualFold(sourceLang, targetLang) {
		if ratio, n := untranslatedRatio(source, translated, v.MinUntranslatedLen); n > 0 && ratio > v.UntranslatedRatio {
			issues = append(issues, model.Issue{
				Validator:  v.Name(),
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("%.0f%% of long source words appear untranslated", ratio*100),
				Confidence: 0.6,
			})
		}
	}

	return issues, nil
}

func longestRepeatRun(text string) (string, int) {
	words := strings.Fields(strings.ToLower(text))
	bestWord, best, run := "", 0, 1
	for i := 1; i < len(words); i++ {
		if words[i] == words[i-1] {
			run++
			if run > best {
				best = run
				bestWord = words[i]
			}
		} else {
			run = 1
		}
	}
	return bestWord, best
}

// untranslatedRatio returns the fraction of long source words appearing
// verbatim in the translation, and the number of long words considered.
func untranslatedRatio(source, translated string, minLen int) (float64, int) {
	dstWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(translated)) {
		dstWords[strings.Trim(w, ".,;:!?()")] = struct{}{}
	}

	var long, verbatim int
	for _, w := range strings.Fields(strings.ToLower(source)) {
		w = strings.Trim(w, ".,;:!?()")
		if len(w) < minLen {
			continue
		}
		long++
		if _, ok := dstWords[w]; ok {
			verbatim++
		}
	}
	if long == 0 {
		return 0, 0
	}
	return float64(verbatim) / float64(long), long
}
