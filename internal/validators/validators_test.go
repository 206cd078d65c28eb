package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlingo/transqa/internal/model"
)

func severities(issues []model.Issue) []model.Severity {
	out := make([]model.Severity, len(issues))
	for i, is := range issues {
		out[i] = is.Severity
	}
	return out
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	vs := Defaults()
	require.Len(t, vs, 5)
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name()
	}
	assert.Equal(t, []string{
		"medical_terms", "numeric_consistency", "format_preservation",
		"contextual", "safety",
	}, names)
}

func TestNumericValidator(t *testing.T) {
	t.Parallel()

	v := NewNumericValidator()

	t.Run("all numbers preserved", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("take 2 tablets of 500mg", "tome 2 tabletas de 500mg", "en", "es")
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("missing number fails", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("take 500mg twice", "tome el medicamento dos veces", "en", "es")
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, model.SeverityFailed, issues[0].Severity)
		assert.Contains(t, issues[0].Message, "500")
	})

	t.Run("decimal comma equals decimal point", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("dose of 2.5 ml", "dosis de 2,5 ml", "en", "es")
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("new large number warns", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("rest today", "descanse 100 minutos hoy", "en", "es")
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, model.SeverityWarning, issues[0].Severity)
	})

	t.Run("small new number is noise", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("rest today", "1. descanse hoy", "en", "es")
		require.NoError(t, err)
		assert.Empty(t, issues)
	})
}

func TestMedicalTermValidator(t *testing.T) {
	t.Parallel()

	v := NewMedicalTermValidator()

	t.Run("faithful translation passes", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"Take 500mg amoxicillin twice daily",
			"Tome 500mg de amoxicilina dos veces al día",
			"en", "es",
		)
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("missing dosage fails", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"Take 500mg amoxicillin twice daily",
			"Tome amoxicilina dos veces al día",
			"en", "es",
		)
		require.NoError(t, err)
		assert.Contains(t, severities(issues), model.SeverityFailed)
	})

	t.Run("critical term equivalent accepted", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"reduce the dose if dizzy",
			"reduzca la dosis si tiene mareos",
			"en", "es",
		)
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("missing critical term fails", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"reduce the dose if dizzy",
			"reduzca la cantidad si tiene mareos",
			"en", "es",
		)
		require.NoError(t, err)
		require.NotEmpty(t, issues)
		assert.Equal(t, model.SeverityFailed, issues[0].Severity)
	})

	t.Run("unknown drug-like token warns", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"patient takes zobramycin nightly",
			"el paciente toma medicina cada noche",
			"en", "es",
		)
		require.NoError(t, err)
		assert.Contains(t, severities(issues), model.SeverityWarning)
	})
}

func TestFormatValidator(t *testing.T) {
	t.Parallel()

	v := NewFormatValidator()

	t.Run("matching structure passes", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("- rest\n- fluids (daily)", "- descanso\n- líquidos (a diario)", "en", "es")
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("lost bullet warns", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("- rest\n- fluids", "descanso y líquidos", "en", "es")
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, model.SeverityWarning, issues[0].Severity)
	})

	t.Run("unbalanced parens warn", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("rest (daily)", "descanso (a diario", "en", "es")
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Message, "parentheses")
	})

	t.Run("special character loss warns", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("see www.example.com/info", "vea el sitio", "en", "es")
		require.NoError(t, err)
		assert.NotEmpty(t, issues)
	})
}

func TestContextualValidator(t *testing.T) {
	t.Parallel()

	v := NewContextualValidator()

	t.Run("plausible translation passes", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("take with food", "tomar con alimentos", "en", "es")
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("extreme length ratio warns", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"take one tablet every morning with a full glass of water",
			"tome",
			"en", "es",
		)
		require.NoError(t, err)
		require.NotEmpty(t, issues)
		assert.Contains(t, issues[0].Message, "length ratio")
	})

	t.Run("repeated word run warns", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate("please take your medicine daily", "tome tome tome cada día", "en", "es")
		require.NoError(t, err)
		require.NotEmpty(t, issues)
		assert.Contains(t, issues[0].Message, "repeated")
	})

	t.Run("untranslated output warns", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"swallow capsule whole before breakfast without chewing anything",
			"swallow capsule whole before breakfast without chewing anything",
			"en", "es",
		)
		require.NoError(t, err)
		assert.NotEmpty(t, issues)
	})
}

func TestSafetyValidator(t *testing.T) {
	t.Parallel()

	v := NewSafetyValidator()

	t.Run("preserved negation passes", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"Do not take if allergic to penicillin",
			"No tome si es alérgico a la penicilina",
			"en", "es",
		)
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("dropped negation fails", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"Do not take this if you are not feeling well and never exceed the dose",
			"Tome esto y exceda la dosis",
			"en", "es",
		)
		require.NoError(t, err)
		require.NotEmpty(t, issues)
		assert.Contains(t, severities(issues), model.SeverityFailed)
	})

	t.Run("missing safety phrase fails", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"Warning: may cause drowsiness",
			"Puede causar somnolencia",
			"en", "es",
		)
		require.NoError(t, err)
		require.NotEmpty(t, issues)
		assert.Equal(t, model.SeverityFailed, issues[0].Severity)
		assert.Contains(t, issues[0].Message, "warning")
	})

	t.Run("translated safety phrase accepted", func(t *testing.T) {
		t.Parallel()
		issues, err := v.Validate(
			"Warning: may cause drowsiness",
			"Advertencia: puede causar somnolencia",
			"en", "es",
		)
		require.NoError(t, err)
		assert.Empty(t, issues)
	})
}
