// Package medical extracts typed medical entities (medications, dosages,
// codes, allergies) from text via pattern rules and matches them across a
// source text and its translation.
package medical

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityMedication       EntityType = "medication"
	EntityDosage           EntityType = "dosage"
	EntityFrequency        EntityType = "frequency"
	EntityLabValue         EntityType = "lab_value"
	EntityVitalSign        EntityType = "vital_sign"
	EntityCode             EntityType = "code"
	EntityAllergy          EntityType = "allergy"
	EntityContraindication EntityType = "contraindication"
)

// criticalTypes are entity types whose loss in translation is always a
// hard failure.
var criticalTypes = map[EntityType]bool{
	EntityMedication:       true,
	EntityDosage:           true,
	EntityAllergy:          true,
	EntityContraindication: true,
}

// Entity is one recognized span of medical content.
type Entity struct {
	Type       EntityType `json:"type"`
	Text       string     `json:"text"`
	Normalized string     `json:"normalized"`
	Start      int        `json:"start"`
	End        int        `json:"end"`

	// Numeric value and canonical unit, populated for dosages, lab
	// values and vital signs.
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

// Critical reports whether losing this entity in translation is a hard
// failure.
func (e Entity) Critical() bool {
	return criticalTypes[e.Type]
}
