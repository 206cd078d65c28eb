package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlingo/transqa/internal/resilience"
)

func fastRetry(attempts int) resilience.Policy {
	return resilience.Policy{
		Attempts:  attempts,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
		Growth:    2.0,
	}
}

func TestMockTranslate(t *testing.T) {
	t.Parallel()

	m := NewMock().Add("en", "es", "hello", "hola", 0.95)
	ctx := context.Background()

	resp, err := m.Translate(ctx, Request{Text: "hello", SourceLang: "en", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text)
	assert.Equal(t, 0.95, resp.Confidence)

	resp, err = m.Translate(ctx, Request{Text: "goodbye", SourceLang: "en", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "goodbye", resp.Text, "unknown texts echo back")

	resp, err = m.Translate(ctx, Request{Text: "hello", SourceLang: "EN", TargetLang: "ES"})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text, "language codes are case-insensitive")

	assert.Equal(t, 3, m.Calls())
}

func TestMockTranslateErr(t *testing.T) {
	t.Parallel()

	m := NewMock()
	m.Err = eris.New("translator: down")

	_, err := m.Translate(context.Background(), Request{Text: "x", SourceLang: "en", TargetLang: "es"})
	require.Error(t, err)
	assert.Equal(t, 1, m.Calls(), "failed calls still count")
}

func TestMockTranslateCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMock()
	_, err := m.Translate(ctx, Request{Text: "x", SourceLang: "en", TargetLang: "es"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
}

func TestMockLanguages(t *testing.T) {
	t.Parallel()

	m := NewMock()
	langs, err := m.Languages(context.Background())
	require.NoError(t, err)
	assert.Contains(t, langs, "en")
	assert.Contains(t, langs, "es")

	m.Supported = []string{"pt", "it"}
	langs, err = m.Languages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pt", "it"}, langs)
}

func TestClientTranslate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/translate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "take 500mg daily", req.Text)

		json.NewEncoder(w).Encode(Response{Text: "tome 500mg al día", Confidence: 0.91, Model: "med-v2"})
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, WithRetryPolicy(fastRetry(1)))
	resp, err := c.Translate(context.Background(), Request{
		Text: "take 500mg daily", SourceLang: "en", TargetLang: "es",
	})
	require.NoError(t, err)
	assert.Equal(t, "tome 500mg al día", resp.Text)
	assert.Equal(t, "med-v2", resp.Model)
}

func TestClientTranslateEmptyLanguage(t *testing.T) {
	t.Parallel()

	c := NewClient("k", "http://unused", WithRetryPolicy(fastRetry(1)))
	_, err := c.Translate(context.Background(), Request{Text: "x", SourceLang: "en"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestClientTranslateUnsupportedPair(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, WithRetryPolicy(fastRetry(3)))
	_, err := c.Translate(context.Background(), Request{Text: "x", SourceLang: "en", TargetLang: "xx"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage, "422 is not retried")
}

func TestClientTranslateRetriesServerError(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Response{Text: "hola", Confidence: 0.9})
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, WithRetryPolicy(fastRetry(3)))
	resp, err := c.Translate(context.Background(), Request{Text: "hello", SourceLang: "en", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClientTranslateBackendDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, WithRetryPolicy(fastRetry(2)))
	_, err := c.Translate(context.Background(), Request{Text: "x", SourceLang: "en", TargetLang: "es"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestClientLanguages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/languages", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]string{"languages": {"en", "es", "fr"}})
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL)
	langs, err := c.Languages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "es", "fr"}, langs)
}
