// Package validators implements the independent translation checkers.
// Each validator inspects a (source, translation) pair and reports zero
// or more issues. Validators must not panic; an error return is degraded
// to a warning issue by the pipeline so a broken validator cannot abort
// a run.
package validators

import "github.com/medlingo/transqa/internal/model"

// Validator is one independent translation checker.
type Validator interface {
	Name() string
	Validate(source, translated, sourceLang, targetLang string) ([]model.Issue, error)
}

// Defaults returns the standard validator set in execution order.
func Defaults() []Validator {
	return []Validator{
		NewMedicalTermValidator(),
		NewNumericValidator(),
		NewFormatValidator(),
		NewContextualValidator(),
		NewSafetyValidator(),
	}
}
