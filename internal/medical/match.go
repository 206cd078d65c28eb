package medical

import (
	"fmt"
	"strings"

	"github.com/medlingo/transqa/internal/model"
)

// Pair is a matched (source, translation) entity pair.
type Pair struct {
	Source  Entity `json:"source"`
	Matched Entity `json:"matched"`
}

// MatchResult holds the outcome of matching entities across texts.
type MatchResult struct {
	Pairs   []Pair   `json:"pairs"`
	Missing []Entity `json:"missing"`
}

// PreservationRatio is the fraction of source entities found in the
// translation. Returns 1.0 when the source had no entities.
func (m MatchResult) PreservationRatio() float64 {
	total := len(m.Pairs) + len(m.Missing)
	if total == 0 {
		return 1.0
	}
	return float64(len(m.Pairs)) / float64(total)
}

// Match pairs entities from the source list with entities from the
// translation list. Entities match only within the same type; dosages
// require numeric equality after unit normalization; medications accept
// exact, substring, or synonym-set matches; everything else requires
// exact normalized-string equality.
func Match(source, translated []Entity) MatchResult {
	var res MatchResult
	used := make([]bool, len(translated))

	for _, src := range source {
		idx := -1
		for i, dst := range translated {
			if used[i] || dst.Type != src.Type {
				continue
			}
			if entitiesMatch(src, dst) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			used[idx] = true
			res.Pairs = append(res.Pairs, Pair{Source: src, Matched: translated[idx]})
		} else {
			res.Missing = append(res.Missing, src)
		}
	}
	return res
}

func entitiesMatch(a, b Entity) bool {
	switch a.Type {
	case EntityDosage, EntityLabValue, EntityVitalSign:
		if a.Value == nil || b.Value == nil {
			return a.Normalized == b.Normalized
		}
		return *a.Value == *b.Value && a.Unit == b.Unit
	case EntityMedication:
		return medicationsMatch(a, b)
	default:
		return a.Normalized == b.Normalized
	}
}

func medicationsMatch(a, b Entity) bool {
	if a.Normalized == b.Normalized {
		return true
	}
	if strings.Contains(a.Normalized, b.Normalized) || strings.Contains(b.Normalized, a.Normalized) {
		return true
	}
	ga, okA := CanonicalDrug(a.Text)
	gb, okB := CanonicalDrug(b.Text)
	return okA && okB && ga == gb
}

// AccuracyResult is the verdict of a medical-accuracy check.
type AccuracyResult struct {
	IsAccurate bool          `json:"is_accurate"`
	Match      MatchResult   `json:"match"`
	Issues     []model.Issue `json:"issues"`
}

// ValidateMedicalAccuracy extracts and matches entities across a source
// and its translation. Loss of a critical entity (medication, dosage,
// allergy, contraindication) is a hard failure; loss of any other entity
// is a warning.
func ValidateMedicalAccuracy(source, translated string) AccuracyResult {
	match := Match(Extract(source), Extract(translated))
	res := AccuracyResult{IsAccurate: true, Match: match}

	for _, missing := range match.Missing {
		severity := model.SeverityWarning
		confidence := 0.7
		if missing.Critical() {
			severity = model.SeverityFailed
			confidence = 0.95
			res.IsAccurate = false
		}
		res.Issues = append(res.Issues, model.Issue{
			Validator:  "medical_entity_matcher",
			Severity:   severity,
			Message:    fmt.Sprintf("%s %q from source not found in translation", missing.Type, missing.Text),
			Confidence: confidence,
			Span:       &model.Span{Start: missing.Start, End: missing.End},
		})
	}
	return res
}
