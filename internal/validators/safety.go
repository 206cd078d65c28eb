package validators

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/medlingo/transqa/internal/model"
)

// safetyEquivalents maps English safety-critical phrases to acceptable
// renderings per target language. Presence of the English phrase itself
// in the translation also counts.
var safetyEquivalents = map[string]map[string][]string{
	"warning":                {"es": {"advertencia", "aviso"}, "fr": {"avertissement", "attention"}, "de": {"warnung", "achtung"}},
	"danger":                 {"es": {"peligro"}, "fr": {"danger"}, "de": {"gefahr"}},
	"caution":                {"es": {"precaucion", "precaución", "cuidado"}, "fr": {"prudence", "precaution", "précaution"}, "de": {"vorsicht"}},
	"emergency":              {"es": {"emergencia", "urgencia"}, "fr": {"urgence"}, "de": {"notfall"}},
	"fatal":                  {"es": {"fatal", "mortal"}, "fr": {"fatal", "mortel"}, "de": {"tödlich", "toedlich", "fatal"}},
	"must not":               {"es": {"no debe", "no deben"}, "fr": {"ne doit pas", "ne devez pas"}, "de": {"darf nicht", "dürfen nicht"}},
	"never":                  {"es": {"nunca", "jamás", "jamas"}, "fr": {"jamais"}, "de": {"nie", "niemals"}},
	"do not":                 {"es": {"no "}, "fr": {"ne pas", "ne "}, "de": {"nicht"}},
	"allergic":               {"es": {"alergico", "alérgico", "alergica", "alérgica"}, "fr": {"allergique"}, "de": {"allergisch"}},
	"allergy":                {"es": {"alergia"}, "fr": {"allergie"}, "de": {"allergie"}},
	"contraindicated":        {"es": {"contraindicado", "contraindicada"}, "fr": {"contre-indiqué", "contre-indique"}, "de": {"kontraindiziert"}},
	"overdose":               {"es": {"sobredosis"}, "fr": {"surdosage", "surdose"}, "de": {"überdosis", "ueberdosis"}},
	"seek medical attention": {"es": {"atencion medica", "atención médica"}, "fr": {"consulter un médecin", "consulter un medecin"}, "de": {"arzt aufsuchen", "ärztliche hilfe"}},
}

// negationPatterns count negations per language.
var negationPatterns = map[string]*regexp.Regexp{
	"en": regexp.MustCompile(`(?i)\b(not|no|never|cannot|can't|don't|doesn't|won't|without|none)\b`),
	"es": regexp.MustCompile(`(?i)\b(no|nunca|jamás|jamas|sin|ningun[oa]?|ningún|tampoco)\b`),
	"fr": regexp.MustCompile(`(?i)\b(ne|pas|non|jamais|sans|aucun[e]?|ni)\b`),
	"de": regexp.MustCompile(`(?i)\b(nicht|kein[e]?|keinen|niemals|nie|ohne)\b`),
}

// SafetyValidator guards safety-critical content: warnings, allergy
// statements, contraindications and negations must survive translation.
// Losses are hard failures.
type SafetyValidator struct {
	// NegationTolerance is the allowed difference in negation counts
	// before failing. Languages express negation with different word
	// counts (French "ne ... pas"), so a tolerance of 1 is the floor.
	NegationTolerance int
}

// NewSafetyValidator returns a safety validator with tolerance 1.
func NewSafetyValidator() *SafetyValidator {
	return &SafetyValidator{NegationTolerance: 1}
}

func (v *SafetyValidator) Name() string { return "safety" }

// Validate implements Validator.
func (v *SafetyValidator) Validate(source, translated, sourceLang, targetLang string) ([]model.Issue, error) {
	var issues []model.Issue
	srcLower := strings.ToLower(source)
	dstLower := strings.ToLower(translated)

	for phrase, perLang := range safetyEquivalents {
		if !strings.Contains(srcLower, phrase) {
			continue
		}
		if termPreserved(phrase, perLang[targetLang], dstLower) {
			continue
		}
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityFailed,
			Message:    fmt.Sprintf("safety-critical phrase %q missing from translation", phrase),
			Confidence: 0.95,
			Suggestion: fmt.Sprintf("ensure %q is rendered in the target language", phrase),
		})
	}

	srcNeg := countNegations(source, sourceLang)
	dstNeg := countNegations(translated, targetLang)
	if diff := abs(srcNeg - dstNeg); diff > v.NegationTolerance {
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityFailed,
			Message:    fmt.Sprintf("negation count mismatch: %d in source, %d in translation", srcNeg, dstNeg),
			Confidence: 0.9,
			Suggestion: "verify no negation was dropped or introduced",
		})
	}

	return issues, nil
}

func countNegations(text, lang string) int {
	re, ok := negationPatterns[strings.ToLower(lang)]
	if !ok {
		re = negationPatterns["en"]
	}
	return len(re.FindAllString(text, -1))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
