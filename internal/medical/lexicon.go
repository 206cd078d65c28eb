package medical

import (
	"regexp"
	"strings"
)

// unitSynonyms maps dosage unit spellings to a canonical unit.
var unitSynonyms = map[string]string{
	"mg": "mg", "milligram": "mg", "milligrams": "mg", "miligramos": "mg", "milligramme": "mg", "milligrammes": "mg",
	"g": "g", "gram": "g", "grams": "g", "gramos": "g", "gramme": "g", "grammes": "g",
	"mcg": "mcg", "ug": "mcg", "µg": "mcg", "microgram": "mcg", "micrograms": "mcg", "microgramos": "mcg",
	"ml": "ml", "milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "mililitros": "ml",
	"l": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"iu": "iu", "units": "iu", "unit": "iu", "unidades": "iu",
	"mg/dl": "mg/dl", "mmol/l": "mmol/l", "mmhg": "mmhg", "bpm": "bpm",
	"tablet": "tablet", "tablets": "tablet", "tableta": "tablet", "tabletas": "tablet", "comprimido": "tablet", "comprimidos": "tablet",
	"capsule": "capsule", "capsules": "capsule", "capsula": "capsule", "capsulas": "capsule",
	"drop": "drop", "drops": "drop", "gota": "drop", "gotas": "drop",
}

// frequencySynonyms maps dosing-frequency phrasings across the
// supported languages to a canonical times-per-period form, so
// equivalent frequencies compare equal during cross-language matching.
var frequencySynonyms = map[string]string{
	"daily": "1/day", "once daily": "1/day", "once a day": "1/day", "once per day": "1/day",
	"twice daily": "2/day", "twice a day": "2/day", "twice per day": "2/day",
	"three times daily": "3/day", "three times a day": "3/day", "three times per day": "3/day",
	"four times daily": "4/day", "four times a day": "4/day", "four times per day": "4/day",
	"bid": "2/day", "b.i.d": "2/day", "b.i.d.": "2/day",
	"tid": "3/day", "t.i.d": "3/day", "t.i.d.": "3/day",
	"qid": "4/day", "q.i.d": "4/day", "q.i.d.": "4/day",
	"nightly": "1/night",
	"weekly":  "1/week",
	"diario":  "1/day", "a diario": "1/day",
	"una vez al día": "1/day", "una vez al dia": "1/day",
	"dos veces al día": "2/day", "dos veces al dia": "2/day",
	"tres veces al día": "3/day", "tres veces al dia": "3/day",
	"cuatro veces al día": "4/day", "cuatro veces al dia": "4/day",
	"une fois par jour": "1/day", "deux fois par jour": "2/day",
	"trois fois par jour": "3/day", "quatre fois par jour": "4/day",
	"täglich": "1/day", "einmal täglich": "1/day", "zweimal täglich": "2/day",
	"dreimal täglich": "3/day", "viermal täglich": "4/day",
}

// everyIntervalRe captures "every N hours" phrasings in the supported
// languages.
var everyIntervalRe = regexp.MustCompile(`(?:every|cada|alle|toutes? les)\s+(\d+)\s+(hours?|horas?|heures?|stunden|days?|d[ií]as?|jours?|tage|weeks?|semanas?|semaines?|wochen)`)

// CanonicalFrequency normalizes a dosing-frequency phrase, returning
// the input lowercased when no canonical form is known.
func CanonicalFrequency(raw string) string {
	f := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := frequencySynonyms[f]; ok {
		return c
	}
	if m := everyIntervalRe.FindStringSubmatch(f); m != nil {
		unit := m[2]
		switch {
		case strings.HasPrefix(unit, "hour"), strings.HasPrefix(unit, "hora"),
			strings.HasPrefix(unit, "heure"), unit == "stunden":
			return "q" + m[1] + "h"
		case strings.HasPrefix(unit, "day"), strings.HasPrefix(unit, "día"),
			strings.HasPrefix(unit, "dia"), strings.HasPrefix(unit, "jour"), unit == "tage":
			return "q" + m[1] + "d"
		default:
			return "q" + m[1] + "w"
		}
	}
	return f
}

// knownDrugs maps a generic drug name to its brand/generic synonyms,
// lowercase. Substring containment against this set is also accepted
// during matching.
var knownDrugs = map[string][]string{
	"amoxicillin":   {"amoxicilina", "amoxil", "amoxicilline", "amoxicillinum"},
	"ibuprofen":     {"ibuprofeno", "advil", "motrin", "nurofen", "ibuprofene"},
	"acetaminophen": {"paracetamol", "tylenol", "paracetamolo"},
	"aspirin":       {"aspirina", "acetylsalicylic acid", "asa"},
	"penicillin":    {"penicilina", "penicilline", "penizillin"},
	"insulin":       {"insulina", "insuline", "lantus", "humalog"},
	"metformin":     {"metformina", "glucophage", "metformine"},
	"warfarin":      {"warfarina", "coumadin", "warfarine"},
	"lisinopril":    {"zestril", "prinivil"},
	"atorvastatin":  {"atorvastatina", "lipitor"},
	"omeprazole":    {"omeprazol", "prilosec", "losec"},
	"amlodipine":    {"amlodipino", "norvasc"},
	"levothyroxine": {"levotiroxina", "synthroid", "eutirox"},
	"prednisone":    {"prednisona", "deltasone"},
	"azithromycin":  {"azitromicina", "zithromax"},
	"ciprofloxacin": {"ciprofloxacino", "cipro"},
	"morphine":      {"morfina", "morphin"},
	"heparin":       {"heparina", "heparine"},
	"epinephrine":   {"epinefrina", "adrenaline", "adrenalina"},
	"nitroglycerin": {"nitroglicerina", "glyceryl trinitrate"},
}

// drugSynonymIndex maps every known spelling (generic, brand, foreign)
// to its canonical generic name.
var drugSynonymIndex = buildDrugIndex()

func buildDrugIndex() map[string]string {
	idx := make(map[string]string, len(knownDrugs)*3)
	for generic, syns := range knownDrugs {
		idx[generic] = generic
		for _, s := range syns {
			idx[strings.ToLower(s)] = generic
		}
	}
	return idx
}

// CanonicalDrug resolves a medication spelling to its generic name. The
// boolean is false when the name is not in the known-drug set.
func CanonicalDrug(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if g, ok := drugSynonymIndex[name]; ok {
		return g, true
	}
	// Fuzzy substring match: "amoxicillin 500mg" or partial tokens.
	for spelling, generic := range drugSynonymIndex {
		if strings.Contains(name, spelling) || strings.Contains(spelling, name) {
			return generic, true
		}
	}
	return name, false
}

// CanonicalUnit normalizes a unit spelling, returning the input
// lowercased when no synonym is known.
func CanonicalUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if c, ok := unitSynonyms[u]; ok {
		return c
	}
	return u
}

// DomainTerms returns the flattened vocabulary of known drug spellings,
// used by the medical-weighted similarity metric.
func DomainTerms() []string {
	terms := make([]string, 0, len(drugSynonymIndex))
	for spelling := range drugSynonymIndex {
		terms = append(terms, spelling)
	}
	return terms
}
