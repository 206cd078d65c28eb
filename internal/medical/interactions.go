package medical

import "sort"

// Interaction is a known risky combination of two medications.
type Interaction struct {
	DrugA    string `json:"drug_a"`
	DrugB    string `json:"drug_b"`
	Severity string `json:"severity"`
	Note     string `json:"note"`
}

// knownInteractions is keyed by the sorted canonical drug pair.
var knownInteractions = map[[2]string]Interaction{
	{"aspirin", "warfarin"}:         {DrugA: "aspirin", DrugB: "warfarin", Severity: "major", Note: "increased bleeding risk"},
	{"ibuprofen", "warfarin"}:       {DrugA: "ibuprofen", DrugB: "warfarin", Severity: "major", Note: "increased bleeding risk"},
	{"ibuprofen", "lisinopril"}:     {DrugA: "ibuprofen", DrugB: "lisinopril", Severity: "moderate", Note: "reduced antihypertensive effect"},
	{"fluoxetine", "tramadol"}:      {DrugA: "fluoxetine", DrugB: "tramadol", Severity: "major", Note: "serotonin syndrome risk"},
	{"metformin", "prednisone"}:     {DrugA: "metformin", DrugB: "prednisone", Severity: "moderate", Note: "impaired glycemic control"},
	{"amoxicillin", "methotrexate"}: {DrugA: "amoxicillin", DrugB: "methotrexate", Severity: "moderate", Note: "reduced methotrexate clearance"},
}

// CheckInteractions reports known interactions among the medication
// entities present in a text. Drug names are canonicalized first, so
// brand and generic names resolve to the same pair.
func CheckInteractions(entities []Entity) []Interaction {
	var drugs []string
	seen := make(map[string]bool)
	for _, e := range entities {
		if e.Type != EntityMedication {
			continue
		}
		name := e.Normalized
		if canonical, ok := CanonicalDrug(e.Text); ok {
			name = canonical
		}
		if !seen[name] {
			seen[name] = true
			drugs = append(drugs, name)
		}
	}
	sort.Strings(drugs)

	var out []Interaction
	for i := 0; i < len(drugs); i++ {
		for j := i + 1; j < len(drugs); j++ {
			if hit, ok := knownInteractions[[2]string{drugs[i], drugs[j]}]; ok {
				out = append(out, hit)
			}
		}
	}
	return out
}
