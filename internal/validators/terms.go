package validators

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/medlingo/transqa/internal/medical"
	"github.com/medlingo/transqa/internal/model"
)

// criticalTermEquivalents maps an English critical term to acceptable
// renderings per target language. The source term itself always counts
// as preserved (untranslated technical vocabulary is common).
var criticalTermEquivalents = map[string]map[string][]string{
	"dose": {
		"es": {"dosis"}, "fr": {"dose"}, "de": {"dosis", "dosierung"},
	},
	"allergy": {
		"es": {"alergia"}, "fr": {"allergie"}, "de": {"allergie"},
	},
	"allergic": {
		"es": {"alergico", "alérgico", "alergica", "alérgica"}, "fr": {"allergique"}, "de": {"allergisch"},
	},
	"prescription": {
		"es": {"receta", "prescripcion", "prescripción"}, "fr": {"ordonnance"}, "de": {"rezept", "verschreibung"},
	},
	"side effect": {
		"es": {"efecto secundario", "efectos secundarios"}, "fr": {"effet secondaire", "effets secondaires"}, "de": {"nebenwirkung", "nebenwirkungen"},
	},
	"overdose": {
		"es": {"sobredosis"}, "fr": {"surdosage", "surdose"}, "de": {"überdosis", "ueberdosis"},
	},
	"infection": {
		"es": {"infeccion", "infección"}, "fr": {"infection"}, "de": {"infektion"},
	},
	"blood pressure": {
		"es": {"presion arterial", "presión arterial", "tension arterial", "tensión arterial"}, "fr": {"tension arterielle", "tension artérielle"}, "de": {"blutdruck"},
	},
}

var abbreviationRe = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// candidateDrugSuffixes flag tokens that look like drug names even when
// absent from the known-drug set.
var candidateDrugSuffixes = []string{
	"cillin", "mycin", "azole", "pril", "statin", "olol", "sartan",
	"dipine", "prazole", "oxetine", "azepam", "cycline", "floxacin",
}

// MedicalTermValidator checks that critical medical vocabulary,
// abbreviations, drug names and dosage sets survive translation.
type MedicalTermValidator struct{}

// NewMedicalTermValidator returns the standard term validator.
func NewMedicalTermValidator() *MedicalTermValidator { return &MedicalTermValidator{} }

func (v *MedicalTermValidator) Name() string { return "medical_terms" }

// Validate implements Validator.
func (v *MedicalTermValidator) Validate(source, translated, sourceLang, targetLang string) ([]model.Issue, error) {
	var issues []model.Issue
	srcLower := strings.ToLower(source)
	dstLower := strings.ToLower(translated)

	// Critical term vocabulary.
	for term, perLang := range criticalTermEquivalents {
		if !strings.Contains(srcLower, term) {
			continue
		}
		if termPreserved(term, perLang[targetLang], dstLower) {
			continue
		}
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityFailed,
			Message:    fmt.Sprintf("critical term %q missing from translation", term),
			Confidence: 0.85,
			Suggestion: fmt.Sprintf("verify %q is rendered in the target language", term),
		})
	}

	// Abbreviation count mismatch.
	srcAbbrs := abbreviationRe.FindAllString(source, -1)
	dstAbbrs := abbreviationRe.FindAllString(translated, -1)
	if len(srcAbbrs) != len(dstAbbrs) {
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("abbreviation count mismatch: %d in source, %d in translation", len(srcAbbrs), len(dstAbbrs)),
			Confidence: 0.6,
		})
	}

	// Candidate drug-name disappearance (soft warning).
	for _, tok := range tokenize(srcLower) {
		if !looksLikeDrug(tok) {
			continue
		}
		if strings.Contains(dstLower, tok) {
			continue
		}
		if _, known := medical.CanonicalDrug(tok); known {
			// The entity matcher handles known drugs with synonyms.
			continue
		}
		issues = append(issues, model.Issue{
			Validator:  v.Name(),
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("possible drug name %q not found in translation", tok),
			Confidence: 0.5,
		})
	}

	// Dosage set comparison.
	issues = append(issues, v.compareDosages(source, translated)...)

	return issues, nil
}

func (v *MedicalTermValidator) compareDosages(source, translated string) []model.Issue {
	srcDoses := dosageSet(source)
	dstDoses := dosageSet(translated)

	var issues []model.Issue
	for dose := range srcDoses {
		if _, ok := dstDoses[dose]; !ok {
			issues = append(issues, model.Issue{
				Validator:  v.Name(),
				Severity:   model.SeverityFailed,
				Message:    fmt.Sprintf("dosage %q from source missing in translation", dose),
				Confidence: 0.95,
			})
		}
	}
	for dose := range dstDoses {
		if _, ok := srcDoses[dose]; !ok {
			issues = append(issues, model.Issue{
				Validator:  v.Name(),
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("dosage %q appears in translation but not in source", dose),
				Confidence: 0.7,
			})
		}
	}
	return issues
}

func dosageSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, e := range medical.Extract(text) {
		if e.Type == medical.EntityDosage {
			set[e.Normalized] = struct{}{}
		}
	}
	return set
}

func termPreserved(term string, equivalents []string, dstLower string) bool {
	if strings.Contains(dstLower, term) {
		return true
	}
	for _, eq := range equivalents {
		if strings.Contains(dstLower, eq) {
			return true
		}
	}
	return false
}

func looksLikeDrug(token string) bool {
	if len(token) < 6 {
		return false
	}
	for _, suffix := range candidateDrugSuffixes {
		if strings.HasSuffix(token, suffix) {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != 'á' && r != 'é' && r != 'í' && r != 'ó' && r != 'ú' && r != 'ñ' && r != 'ü' && r != 'ö' && r != 'ä' && r != 'ß' && r != 'è' && r != 'ê' && r != 'ç'
	})
}
