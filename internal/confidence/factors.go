package confidence

import (
	"regexp"
	"strings"

	"github.com/medlingo/transqa/internal/medical"
	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/textsim"
)

// issuePenalty is the score deduction for one issue, scaled by the
// issue's own confidence.
func issuePenalty(is model.Issue) float64 {
	switch is.Severity {
	case model.SeverityFailed:
		return 0.3 * is.Confidence
	case model.SeverityWarning:
		return 0.1 * is.Confidence
	default:
		return 0
	}
}

func issuesFrom(issues []model.Issue, validators ...string) []model.Issue {
	want := make(map[string]bool, len(validators))
	for _, v := range validators {
		want[v] = true
	}
	var out []model.Issue
	for _, is := range issues {
		if want[is.Validator] {
			out = append(out, is)
		}
	}
	return out
}

func penaltyScore(issues []model.Issue) float64 {
	score := 1.0
	for _, is := range issues {
		score -= issuePenalty(is)
	}
	return clamp01(score)
}

func linguisticQuality(issues []model.Issue, weight float64) model.Factor {
	relevant := issuesFrom(issues, "format_preservation", "numeric_consistency")
	return model.Factor{
		Type:        model.FactorLinguisticQuality,
		Score:       penaltyScore(relevant),
		Weight:      weight,
		Explanation: "structural and numeric fidelity of the translation",
		Metadata:    map[string]any{"issues": len(relevant)},
	}
}

// medicalValidators are the validators whose failures indicate a
// medical fidelity problem.
var medicalValidators = map[string]bool{
	"medical_terms":          true,
	"medical_entity_matcher": true,
	"safety":                 true,
}

func medicalAccuracy(med *medical.AccuracyResult, issues []model.Issue, weight float64) model.Factor {
	score := med.Match.PreservationRatio()

	// Each failed medical issue halves the remaining score.
	failedMedical := 0
	for _, is := range issues {
		if is.Severity == model.SeverityFailed && medicalValidators[is.Validator] {
			score *= 0.5
			failedMedical++
		}
	}

	// Terminology accuracy sharpens the estimate, but only when no
	// critical entity was lost.
	if med.IsAccurate {
		if termAcc, ok := terminologyAccuracy(med); ok {
			score = (score + termAcc) / 2
		}
	}

	return model.Factor{
		Type:        model.FactorMedicalAccuracy,
		Score:       clamp01(score),
		Weight:      weight,
		Explanation: "preservation of medical entities across translation",
		Metadata: map[string]any{
			"entities_matched":      len(med.Match.Pairs),
			"entities_missing":      len(med.Match.Missing),
			"failed_medical_issues": failedMedical,
		},
	}
}

// terminologyAccuracy is the match ratio over medication and dosage
// entities. ok is false when the source had none.
func terminologyAccuracy(med *medical.AccuracyResult) (float64, bool) {
	var total, matched int
	for _, p := range med.Match.Pairs {
		if p.Source.Type == medical.EntityMedication || p.Source.Type == medical.EntityDosage {
			total++
			matched++
		}
	}
	for _, m := range med.Match.Missing {
		if m.Type == medical.EntityMedication || m.Type == medical.EntityDosage {
			total++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(matched) / float64(total), true
}

// similarityWeights blends the metrics most indicative of preserved
// meaning.
var similarityWeights = map[textsim.Metric]float64{
	textsim.MetricCosine:  0.4,
	textsim.MetricMedical: 0.4,
	textsim.MetricBLEU:    0.2,
}

func semanticSimilarity(sim map[textsim.Metric]textsim.Score, weight float64) model.Factor {
	// Neutral default when no similarity scores are available.
	score := 0.7
	explanation := "no similarity scores available, neutral default"
	if len(sim) > 0 {
		score = clamp01(textsim.Composite(sim, similarityWeights))
		explanation = "blended similarity between source and translation"
	}
	return model.Factor{
		Type:        model.FactorSemanticSimilarity,
		Score:       score,
		Weight:      weight,
		Explanation: explanation,
	}
}

func terminologyPrecision(med *medical.AccuracyResult, issues []model.Issue, weight float64) model.Factor {
	score := penaltyScore(issuesFrom(issues, "medical_terms"))
	if termAcc, ok := terminologyAccuracy(med); ok {
		score = 0.6*score + 0.4*termAcc
	}
	return model.Factor{
		Type:        model.FactorTerminologyPrecision,
		Score:       clamp01(score),
		Weight:      weight,
		Explanation: "precision of medical terminology rendering",
	}
}

func contextFactor(issues []model.Issue, weight float64) model.Factor {
	relevant := issuesFrom(issues, "contextual")
	return model.Factor{
		Type:        model.FactorContext,
		Score:       penaltyScore(relevant),
		Weight:      weight,
		Explanation: "structural plausibility in the target language",
		Metadata:    map[string]any{"issues": len(relevant)},
	}
}

func validatorAgreement(issues []model.Issue, validatorCount int, weight float64) model.Factor {
	if validatorCount <= 0 {
		validatorCount = 5
	}
	flagged := make(map[string]bool)
	for _, is := range issues {
		flagged[is.Validator] = true
	}
	score := 1.0 - float64(len(flagged))/float64(validatorCount)
	return model.Factor{
		Type:        model.FactorValidatorAgreement,
		Score:       clamp01(score),
		Weight:      weight,
		Explanation: "fraction of validators raising no issues",
		Metadata:    map[string]any{"flagging_validators": len(flagged)},
	}
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// complexityFactor rates the source text on a three-tier scale: very
// complex text scores 0.9, moderately complex 0.95, plain text 1.0.
func complexityFactor(source string, med *medical.AccuracyResult, weight float64) model.Factor {
	words := strings.Fields(source)
	complexity := 0.0
	if len(words) > 0 {
		sentences := 0
		for _, s := range sentenceSplitRe.Split(source, -1) {
			if strings.TrimSpace(s) != "" {
				sentences++
			}
		}
		if sentences == 0 {
			sentences = 1
		}
		avgSentenceLen := float64(len(words)) / float64(sentences)

		entityCount := len(med.Match.Pairs) + len(med.Match.Missing)
		entityDensity := float64(entityCount) / float64(len(words))

		// 25-word sentences and 0.3 entities per word each saturate
		// their half of the measure.
		complexity = 0.5*clamp01(avgSentenceLen/25.0) + 0.5*clamp01(entityDensity/0.3)
	}

	score := 1.0
	switch {
	case complexity > 0.8:
		score = 0.9
	case complexity > 0.6:
		score = 0.95
	}

	return model.Factor{
		Type:        model.FactorComplexity,
		Score:       score,
		Weight:      weight,
		Explanation: "adjustment for source length and entity density",
		Metadata:    map[string]any{"complexity": complexity},
	}
}

// criticalKeywords flag content whose mistranslation could cause harm.
var criticalKeywords = []string{
	"warning", "danger", "emergency", "fatal", "overdose",
	"allergy", "allergic", "contraindicated", "do not", "must not",
	"dosage", "dose",
}

// criticalContent is a risk flag, not a quality measure: detection of
// critical keywords applies a slight penalty and forces human review in
// most categories.
func criticalContent(source string, issues []model.Issue, weight float64) model.Factor {
	lower := strings.ToLower(source)
	detected := false
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			detected = true
			break
		}
	}
	for _, is := range issuesFrom(issues, "safety", "medical_entity_matcher") {
		if is.Severity == model.SeverityFailed {
			detected = true
			break
		}
	}

	score := 1.0
	if detected {
		score = 0.9
	}
	return model.Factor{
		Type:        model.FactorCriticalContent,
		Score:       score,
		Weight:      weight,
		Explanation: "risk flag for safety-critical content",
		Metadata:    map[string]any{"detected": detected},
	}
}

// uncertaintyMarkers are hedging terms that signal low translation
// confidence when they appear in the output.
var uncertaintyMarkers = []string{
	"might", "may be", "possibly", "perhaps", "unclear", "approximately",
	"quizás", "quizas", "tal vez", "posiblemente", "aproximadamente",
	"peut-être", "peut-etre", "possiblement", "environ",
	"vielleicht", "möglicherweise", "moeglicherweise", "ungefähr", "ungefaehr",
}

func uncertaintyFactor(translated string, markerLimit int, weight float64) model.Factor {
	lower := strings.ToLower(translated)
	count := 0
	for _, m := range uncertaintyMarkers {
		count += strings.Count(lower, m)
	}
	if count > markerLimit {
		count = markerLimit
	}
	score := float64(count) / float64(markerLimit)
	return model.Factor{
		Type:        model.FactorUncertainty,
		Score:       score,
		Weight:      weight,
		Explanation: "hedging language present in the translation",
		Metadata:    map[string]any{"markers": count},
	}
}
