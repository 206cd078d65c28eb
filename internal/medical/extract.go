package medical

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// patternFamily is an ordered set of regexes recognizing one entity type.
type patternFamily struct {
	entityType EntityType
	patterns   []*regexp.Regexp
}

var dosageValueRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([a-zµ/]+)`)

// families are evaluated in order; overlapping spans are deduplicated by
// earliest start, then longest span.
var families = []patternFamily{
	{EntityDosage, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:mg|mcg|µg|ug|g|ml|l|iu)\b`),
		regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:milligrams?|micrograms?|grams?|milliliters?|millilitres?|miligramos|gramos|mililitros|units?|unidades)\b`),
		regexp.MustCompile(`(?i)\b\d+\s*(?:tablets?|tabletas?|capsules?|capsulas?|comprimidos?|drops?|gotas?)\b`),
	}},
	{EntityFrequency, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:once|twice|three times|four times)\s+(?:a|per)\s+day\b`),
		regexp.MustCompile(`(?i)\b(?:once|twice|three times|four times)\s+daily\b`),
		regexp.MustCompile(`(?i)\b(?:une|deux|trois|quatre)\s+fois\s+par\s+jour\b`),
		regexp.MustCompile(`(?i)\b(?:einmal|zweimal|dreimal|viermal)\s+täglich\b`),
		regexp.MustCompile(`(?i)\bevery\s+\d+\s+(?:hours?|days?|weeks?)\b`),
		regexp.MustCompile(`(?i)\b(?:una\s+vez|dos\s+veces|tres\s+veces|cuatro\s+veces)\s+al\s+d[ií]a\b`),
		regexp.MustCompile(`(?i)\bcada\s+\d+\s+horas?\b`),
		regexp.MustCompile(`(?i)\b(?:daily|nightly|weekly|b\.?i\.?d\.?|t\.?i\.?d\.?|q\.?i\.?d\.?|q\d+h)\b`),
		regexp.MustCompile(`(?i)\b(?:a\s+)?diario\b`),
	}},
	{EntityLabValue, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:mg/dl|mmol/l|g/dl|meq/l|ng/ml)\b`),
	}},
	{EntityVitalSign, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{2,3}/\d{2,3}\s*mmhg\b`),
		regexp.MustCompile(`(?i)\b\d{2,3}\s*bpm\b`),
		regexp.MustCompile(`(?i)\b\d{2}(?:[.,]\d)?\s*°?\s*[cf]\b`),
	}},
	{EntityCode, []*regexp.Regexp{
		regexp.MustCompile(`\b[A-TV-Z]\d{2}(?:\.\d{1,4})?\b`),           // ICD-10
		regexp.MustCompile(`\b\d{5}(?:-\d{1,2})?\b`),                    // CPT / NDC segment
		regexp.MustCompile(`(?i)\b(?:icd|cpt|ndc)[-\s]?[a-z0-9.\-]+\b`), // prefixed codes
	}},
	{EntityAllergy, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\ballerg(?:y|ies|ic)\s+to\s+\w+(?:\s\w+)?`),
		regexp.MustCompile(`(?i)\bal[ée]rgic[oa]?\s+a\s+(?:la\s+|el\s+)?\w+`),
		regexp.MustCompile(`(?i)\banaphyla(?:xis|ctic)\b`),
	}},
	{EntityContraindication, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcontraindicat(?:ed|ion|ions)\b`),
		regexp.MustCompile(`(?i)\bcontraindicad[oa]s?\b`),
		regexp.MustCompile(`(?i)\bdo not (?:take|use|combine)\b`),
		regexp.MustCompile(`(?i)\bno (?:tome|use|combine)\b`),
	}},
}

var medicationRe = buildMedicationRegex()

func buildMedicationRegex() *regexp.Regexp {
	spellings := make([]string, 0, len(drugSynonymIndex))
	for spelling := range drugSynonymIndex {
		spellings = append(spellings, regexp.QuoteMeta(spelling))
	}
	sort.Slice(spellings, func(i, j int) bool { return len(spellings[i]) > len(spellings[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(spellings, "|") + `)\b`)
}

// Extract recognizes all medical entities in text. Overlapping spans are
// deduplicated by earliest start, then longest span.
func Extract(text string) []Entity {
	var entities []Entity

	for _, loc := range medicationRe.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		canonical, _ := CanonicalDrug(raw)
		entities = append(entities, Entity{
			Type:       EntityMedication,
			Text:       raw,
			Normalized: canonical,
			Start:      loc[0],
			End:        loc[1],
		})
	}

	for _, fam := range families {
		for _, re := range fam.patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				entities = append(entities, normalize(fam.entityType, text[loc[0]:loc[1]], loc[0], loc[1]))
			}
		}
	}

	return dedupe(entities)
}

// normalize builds an Entity with type-specific normalization applied.
func normalize(t EntityType, raw string, start, end int) Entity {
	e := Entity{Type: t, Text: raw, Start: start, End: end}
	switch t {
	case EntityDosage, EntityLabValue, EntityVitalSign:
		if m := dosageValueRe.FindStringSubmatch(strings.ToLower(raw)); m != nil {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
				val := v
				e.Value = &val
			}
			e.Unit = CanonicalUnit(m[2])
		} else if m := regexp.MustCompile(`\d+(?:[.,]\d+)?`).FindString(raw); m != "" {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64); err == nil {
				val := v
				e.Value = &val
			}
			fields := strings.Fields(strings.ToLower(raw))
			if len(fields) > 1 {
				e.Unit = CanonicalUnit(fields[len(fields)-1])
			}
		}
		e.Normalized = formatDosage(e)
	case EntityCode:
		e.Normalized = strings.ToUpper(strings.TrimSpace(raw))
	case EntityFrequency:
		e.Normalized = CanonicalFrequency(raw)
	default:
		e.Normalized = strings.ToLower(strings.TrimSpace(raw))
	}
	return e
}

func formatDosage(e Entity) string {
	if e.Value == nil {
		return strings.ToLower(strings.TrimSpace(e.Text))
	}
	return strconv.FormatFloat(*e.Value, 'f', -1, 64) + " " + e.Unit
}

// dedupe keeps the earliest-start, longest-span entity among overlaps.
func dedupe(entities []Entity) []Entity {
	if len(entities) == 0 {
		return nil
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].End > entities[j].End
	})
	out := entities[:1]
	for _, e := range entities[1:] {
		last := out[len(out)-1]
		if e.Start < last.End {
			continue
		}
		out = append(out, e)
	}
	return out
}

// icd10Re validates the shape of an ICD-10 code.
var icd10Re = regexp.MustCompile(`^[A-TV-Z]\d{2}(\.\d{1,4})?$`)

// ValidICD10 reports whether code has a valid ICD-10 shape after
// uppercasing.
func ValidICD10(code string) bool {
	return icd10Re.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}
