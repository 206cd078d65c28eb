package validators

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medlingo/transqa/internal/model"
)

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// NumericValidator requires every numeric literal in the source to
// reappear in the translation. New numbers above a small noise threshold
// are flagged as warnings.
type NumericValidator struct {
	// NoiseThreshold is the largest integer treated as translation
	// noise when it appears only in the translation (list markers,
	// ordinals introduced by the target grammar).
	NoiseThreshold float64
}

// NewNumericValidator returns a numeric validator with the default noise
// threshold of 10.
func NewNumericValidator() *NumericValidator {
	return &NumericValidator{NoiseThreshold: 10}
}

func (v *NumericValidator) Name() string { return "numeric_consistency" }

// Validate implements Validator.
func (v *NumericValidator) Validate(source, translated, sourceLang, targetLang string) ([]model.Issue, error) {
	srcNums := extractNumbers(source)
	dstNums := extractNumbers(translated)

	var issues []model.Issue
	for num, count := range srcNums {
		if dstNums[num] < count {
			issues = append(issues, model.Issue{
				Validator:  v.Name(),
				Severity:   model.SeverityFailed,
				Message:    fmt.Sprintf("number %s from source missing in translation", formatNum(num)),
				Confidence: 0.95,
			})
		}
	}
	for num, count := range dstNums {
		if srcNums[num] >= count {
			continue
		}
		if num <= v.NoiseThreshold {
			continue
		}
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("number %s appears in translation but not in source", formatNum(num)),
			Confidence: 0.7,
		})
	}
	return issues, nil
}

// extractNumbers returns numeric values and their occurrence counts.
// Decimal commas are normalized to points so "2,5" and "2.5" compare
// equal across locales.
func extractNumbers(text string) map[float64]int {
	nums := make(map[float64]int)
	for _, m := range numberRe.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
		if err != nil {
			continue
		}
		nums[v]++
	}
	return nums
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
