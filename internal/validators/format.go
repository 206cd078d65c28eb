package validators

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/medlingo/transqa/internal/model"
)

var (
	bulletRe   = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
	numberedRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
)

// specialChars are characters whose counts must be preserved across
// translation.
const specialChars = `@#%&*/\|©®™`

// FormatValidator checks structural formatting: list counts, parenthesis
// balance, and special character preservation. All findings are
// warnings.
type FormatValidator struct{}

// NewFormatValidator returns the standard format validator.
func NewFormatValidator() *FormatValidator { return &FormatValidator{} }

func (v *FormatValidator) Name() string { return "format_preservation" }

// Validate implements Validator.
func (v *FormatValidator) Validate(source, translated, sourceLang, targetLang string) ([]model.Issue, error) {
	var issues []model.Issue

	if s, d := len(bulletRe.FindAllString(source, -1)), len(bulletRe.FindAllString(translated, -1)); s != d {
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("bullet list count mismatch: %d in source, %d in translation", s, d),
			Confidence: 0.8,
		})
	}

	if s, d := len(numberedRe.FindAllString(source, -1)), len(numberedRe.FindAllString(translated, -1)); s != d {
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("numbered list count mismatch: %d in source, %d in translation", s, d),
			Confidence: 0.8,
		})
	}

	if !parensBalanced(translated) {
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityWarning,
			Message:    "unbalanced parentheses in translation",
			Confidence: 0.9,
		})
	}

	for _, ch := range specialChars {
		s := strings.Count(source, string(ch))
		d := strings.Count(translated, string(ch))
		if s != d {
			issues = append(issues, model.Issue{
				Validator:  v.Name(),
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("special character %q count mismatch: %d in source, %d in translation", string(ch), s, d),
				Confidence: 0.7,
			})
		}
	}

	return issues, nil
}

func parensBalanced(text string) bool {
	depth := 0
	for _, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
