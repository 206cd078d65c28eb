package medical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlingo/transqa/internal/model"
)

func findEntity(entities []Entity, t EntityType) *Entity {
	for i := range entities {
		if entities[i].Type == t {
			return &entities[i]
		}
	}
	return nil
}

func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("medication and dosage", func(t *testing.T) {
		t.Parallel()
		entities := Extract("Take 500mg amoxicillin twice a day")

		med := findEntity(entities, EntityMedication)
		require.NotNil(t, med)
		assert.Equal(t, "amoxicillin", med.Normalized)

		dose := findEntity(entities, EntityDosage)
		require.NotNil(t, dose)
		require.NotNil(t, dose.Value)
		assert.Equal(t, 500.0, *dose.Value)
		assert.Equal(t, "mg", dose.Unit)

		freq := findEntity(entities, EntityFrequency)
		require.NotNil(t, freq)
	})

	t.Run("spanish synonyms resolve to generic", func(t *testing.T) {
		t.Parallel()
		entities := Extract("Tome 500mg de amoxicilina dos veces al día")

		med := findEntity(entities, EntityMedication)
		require.NotNil(t, med)
		assert.Equal(t, "amoxicillin", med.Normalized)

		dose := findEntity(entities, EntityDosage)
		require.NotNil(t, dose)
		require.NotNil(t, dose.Value)
		assert.Equal(t, 500.0, *dose.Value)
	})

	t.Run("allergy and contraindication", func(t *testing.T) {
		t.Parallel()
		entities := Extract("Do not take if allergic to penicillin")
		assert.NotNil(t, findEntity(entities, EntityAllergy))
		assert.NotNil(t, findEntity(entities, EntityContraindication))
	})

	t.Run("lab value", func(t *testing.T) {
		t.Parallel()
		entities := Extract("glucose was 110 mg/dl this morning")
		lab := findEntity(entities, EntityLabValue)
		require.NotNil(t, lab)
		require.NotNil(t, lab.Value)
		assert.Equal(t, 110.0, *lab.Value)
	})

	t.Run("no entities", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Extract("please rest and drink fluids"))
	})
}

func TestCanonicalDrug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"amoxicillin", "amoxicillin", true},
		{"Amoxil", "amoxicillin", true},
		{"paracetamol", "acetaminophen", true},
		{"coumadin", "warfarin", true},
		{"obscuredrug", "obscuredrug", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := CanonicalDrug(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, ok)
		})
	}
}

func TestCanonicalFrequency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"daily", "1/day"},
		{"Twice Daily", "2/day"},
		{"twice a day", "2/day"},
		{"dos veces al día", "2/day"},
		{"tres veces al dia", "3/day"},
		{"deux fois par jour", "2/day"},
		{"zweimal täglich", "2/day"},
		{"b.i.d.", "2/day"},
		{"every 8 hours", "q8h"},
		{"cada 8 horas", "q8h"},
		{"every 2 days", "q2d"},
		{"every 2 weeks", "q2w"},
		{"as needed", "as needed"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanonicalFrequency(tt.in))
		})
	}
}

func TestValidICD10(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidICD10("E11.9"))
	assert.True(t, ValidICD10("j45"))
	assert.False(t, ValidICD10("U07.1"), "U block excluded")
	assert.False(t, ValidICD10("123.4"))
}

func TestMatch(t *testing.T) {
	t.Parallel()

	t.Run("dosages match on value and unit", func(t *testing.T) {
		t.Parallel()
		res := Match(Extract("take 500mg amoxicillin"), Extract("tome 500mg de amoxicilina"))
		assert.Empty(t, res.Missing)
		assert.Equal(t, 1.0, res.PreservationRatio())
	})

	t.Run("missing dosage reported", func(t *testing.T) {
		t.Parallel()
		res := Match(Extract("take 500mg amoxicillin"), Extract("tome amoxicilina"))
		require.Len(t, res.Missing, 1)
		assert.Equal(t, EntityDosage, res.Missing[0].Type)
		assert.True(t, res.Missing[0].Critical())
	})

	t.Run("equivalent frequencies match across languages", func(t *testing.T) {
		t.Parallel()
		res := Match(Extract("take twice daily"), Extract("tome dos veces al día"))
		assert.Empty(t, res.Missing)

		res = Match(Extract("check every 8 hours"), Extract("revise cada 8 horas"))
		assert.Empty(t, res.Missing)
	})

	t.Run("different frequencies do not match", func(t *testing.T) {
		t.Parallel()
		res := Match(Extract("take twice daily"), Extract("tome una vez al día"))
		require.Len(t, res.Missing, 1)
		assert.Equal(t, EntityFrequency, res.Missing[0].Type)
	})

	t.Run("changed dosage value does not match", func(t *testing.T) {
		t.Parallel()
		res := Match(Extract("take 500mg daily"), Extract("tome 50mg al día"))
		require.NotEmpty(t, res.Missing)
		assert.Equal(t, EntityDosage, res.Missing[0].Type)
	})
}

func TestValidateMedicalAccuracy(t *testing.T) {
	t.Parallel()

	t.Run("faithful translation is accurate", func(t *testing.T) {
		t.Parallel()
		res := ValidateMedicalAccuracy(
			"Take 500mg amoxicillin twice daily",
			"Tome 500mg de amoxicilina dos veces al día",
		)
		assert.True(t, res.IsAccurate)
		assert.Empty(t, res.Issues)
	})

	t.Run("dropped dosage is a hard failure", func(t *testing.T) {
		t.Parallel()
		res := ValidateMedicalAccuracy(
			"Take 500mg amoxicillin twice daily",
			"Tome amoxicilina dos veces al día",
		)
		assert.False(t, res.IsAccurate)
		require.NotEmpty(t, res.Issues)

		foundFailed := false
		for _, is := range res.Issues {
			if is.Severity == model.SeverityFailed {
				foundFailed = true
				assert.Equal(t, "medical_entity_matcher", is.Validator)
			}
		}
		assert.True(t, foundFailed)
	})

	t.Run("lost frequency is only a warning", func(t *testing.T) {
		t.Parallel()
		res := ValidateMedicalAccuracy(
			"rest, then check again every 4 hours",
			"descanse y revise de nuevo",
		)
		assert.True(t, res.IsAccurate)
		for _, is := range res.Issues {
			assert.Equal(t, model.SeverityWarning, is.Severity)
		}
	})
}

func TestCheckInteractions(t *testing.T) {
	t.Parallel()

	t.Run("known pair flagged once", func(t *testing.T) {
		t.Parallel()
		hits := CheckInteractions(Extract("patient takes aspirin and warfarin daily"))
		require.Len(t, hits, 1)
		assert.Equal(t, "major", hits[0].Severity)
	})

	t.Run("brand names canonicalize before pairing", func(t *testing.T) {
		t.Parallel()
		hits := CheckInteractions(Extract("prescribed advil alongside coumadin"))
		require.Len(t, hits, 1)
		assert.Equal(t, "ibuprofen", hits[0].DrugA)
	})

	t.Run("single drug never interacts", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, CheckInteractions(Extract("takes metformin only")))
	})
}
