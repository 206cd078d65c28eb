package backtranslate

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/pkg/translator"
)

func TestCheckDirect(t *testing.T) {
	t.Parallel()

	source := "Take 500mg amoxicillin twice daily"
	translated := "Tome 500mg de amoxicilina dos veces al día"

	mock := translator.NewMock().Add("es", "en", translated, source, 0.95)
	c := New(mock, DefaultConfig())

	res, err := c.Check(context.Background(), source, translated, "en", "es")
	require.NoError(t, err)

	assert.Equal(t, MethodDirect, res.Method)
	assert.Equal(t, source, res.BackTranslated)
	assert.Empty(t, res.Issues)
	assert.True(t, res.Acceptable)
	assert.GreaterOrEqual(t, res.Confidence, 0.7)
	assert.Equal(t, 1, mock.Calls())
}

func TestCheckChainFailure(t *testing.T) {
	t.Parallel()

	mock := translator.NewMock()
	mock.Err = eris.New("translator: backend down")
	c := New(mock, DefaultConfig())

	res, err := c.Check(context.Background(), "rest today", "descanse hoy", "en", "es")
	require.NoError(t, err, "chain failures degrade, they do not error")

	assert.Empty(t, res.BackTranslated)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, model.SeverityFailed, res.Issues[0].Severity)
	assert.Contains(t, res.Issues[0].Message, "back-translation chain failed")
	assert.False(t, res.Acceptable)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestCheckCriticalPhraseLoss(t *testing.T) {
	t.Parallel()

	source := "Do not take if allergic"
	translated := "Tome si es alérgico"

	mock := translator.NewMock().Add("es", "en", translated, "Take if you have sensitivity", 0.8)
	c := New(mock, DefaultConfig())

	res, err := c.Check(context.Background(), source, translated, "en", "es")
	require.NoError(t, err)

	assert.Greater(t, countSeverity(res.Issues, model.SeverityFailed), 0)
	assert.False(t, res.Acceptable)
	assert.Less(t, res.Confidence, 0.7, "hard failures halve the confidence")
}

func TestCheckCanceledContext(t *testing.T) {
	t.Parallel()

	c := New(translator.NewMock(), DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Check(ctx, "rest today", "descanse hoy", "en", "es")
	require.Error(t, err)
}

func TestPivot(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Method = MethodPivot

	mock := translator.NewMock().
		Add("de", "en", "zweimal täglich einnehmen", "take twice daily", 0.9).
		Add("en", "fr", "take twice daily", "prendre deux fois par jour", 0.9)
	c := New(mock, cfg)

	res, err := c.Check(context.Background(),
		"prendre deux fois par jour", "zweimal täglich einnehmen", "fr", "de")
	require.NoError(t, err)

	assert.Equal(t, "prendre deux fois par jour", res.BackTranslated)
	assert.Equal(t, 2, mock.Calls())
}

func TestPivotLang(t *testing.T) {
	t.Parallel()

	c := New(translator.NewMock(), DefaultConfig())
	assert.Equal(t, "en", c.pivotLang("fr", "de"))
	assert.Equal(t, "es", c.pivotLang("en", "fr"), "English endpoints pivot through Spanish")
	assert.Equal(t, "es", c.pivotLang("fr", "en"))

	cfg := DefaultConfig()
	cfg.PivotLang = "pt"
	c = New(translator.NewMock(), cfg)
	assert.Equal(t, "pt", c.pivotLang("fr", "de"), "explicit pivot wins")
}

func TestEnsembleWeighted(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Method = MethodEnsemble
	cfg.EnsembleSize = 3
	cfg.Voting = "weighted"

	source := "rest today"
	translated := "descanse hoy"
	mock := translator.NewMock().Add("es", "en", translated, source, 0.9)
	c := New(mock, cfg)

	res, err := c.Check(context.Background(), source, translated, "en", "es")
	require.NoError(t, err)

	assert.Equal(t, source, res.BackTranslated)
	assert.Equal(t, 3, mock.Calls(), "weighted voting runs every variant")
}

func TestEnsembleMajority(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Method = MethodEnsemble
	cfg.Voting = "majority"

	mock := translator.NewMock().Add("es", "en", "descanse hoy", "rest today", 0.9)
	c := New(mock, cfg)

	res, err := c.Check(context.Background(), "rest today", "descanse hoy", "en", "es")
	require.NoError(t, err)

	assert.Equal(t, "rest today", res.BackTranslated)
	assert.Equal(t, 1, mock.Calls(), "majority voting takes the first success")
}

func TestIterative(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Method = MethodIterative
	cfg.MaxIterations = 3

	mock := translator.NewMock().
		Add("es", "en", "descanse hoy", "round one", 0.9).
		Add("en", "es", "round one", "vuelta dos", 0.9).
		Add("es", "en", "vuelta dos", "round two", 0.9)
	c := New(mock, cfg)

	res, err := c.Check(context.Background(), "rest today", "descanse hoy", "en", "es")
	require.NoError(t, err)

	assert.Equal(t, "round two", res.BackTranslated, "iterative keeps the last source-language text")
	assert.Equal(t, 3, mock.Calls())
}

func TestCheckBatch(t *testing.T) {
	t.Parallel()

	mock := translator.NewMock().
		Add("es", "en", "descanse hoy", "rest today", 0.9).
		Add("es", "en", "beba líquidos", "drink fluids", 0.9)
	c := New(mock, DefaultConfig())

	items := []Item{
		{SourceText: "rest today", TranslatedText: "descanse hoy", SourceLang: "en", TargetLang: "es"},
		{SourceText: "drink fluids", TranslatedText: "beba líquidos", SourceLang: "en", TargetLang: "es"},
	}
	results, err := c.CheckBatch(context.Background(), items, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "rest today", results[0].BackTranslated)
	assert.Equal(t, "drink fluids", results[1].BackTranslated)
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	c := New(translator.NewMock(), DefaultConfig())

	t.Run("numeric loss warns", func(t *testing.T) {
		t.Parallel()
		issues := c.analyze("take 500 units", "take some units")
		found := false
		for _, is := range issues {
			if is.Severity == model.SeverityWarning && is.Metadata != nil {
				if _, ok := is.Metadata["missing_numbers"]; ok {
					found = true
				}
			}
		}
		assert.True(t, found)
	})

	t.Run("length drift warns", func(t *testing.T) {
		t.Parallel()
		issues := c.analyze(
			"take one tablet every morning before breakfast with water",
			"take tablet",
		)
		found := false
		for _, is := range issues {
			if is.Metadata != nil {
				if _, ok := is.Metadata["length_ratio"]; ok {
					found = true
				}
			}
		}
		assert.True(t, found)
	})

	t.Run("clean round trip is quiet", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, c.analyze("rest and drink fluids", "rest and drink fluids"))
	})
}
