package translator

import (
	"context"
	"strings"
	"sync"
)

// Mock is an in-memory Client for tests and offline runs. Translations
// are looked up in a fixture table keyed by language pair and text;
// unknown texts echo back unchanged.
type Mock struct {
	mu      sync.Mutex
	entries map[string]mockEntry
	calls   int

	// Err, when set, is returned by every Translate call.
	Err error
	// Supported lists language codes returned by Languages. Empty
	// means a default medical set.
	Supported []string
}

type mockEntry struct {
	text       string
	confidence float64
}

// NewMock returns an empty mock translator.
func NewMock() *Mock {
	return &Mock{entries: make(map[string]mockEntry)}
}

// Add registers a fixture translation.
func (m *Mock) Add(sourceLang, targetLang, text, translated string, confidence float64) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[mockKey(sourceLang, targetLang, text)] = mockEntry{text: translated, confidence: confidence}
	return m
}

// Calls returns how many Translate calls were made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Translate implements Client.
func (m *Mock) Translate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.Err != nil {
		return nil, m.Err
	}

	if e, ok := m.entries[mockKey(req.SourceLang, req.TargetLang, req.Text)]; ok {
		return &Response{Text: e.text, Confidence: e.confidence, Model: "mock"}, nil
	}
	return &Response{Text: req.Text, Confidence: 0.5, Model: "mock"}, nil
}

// Languages implements Client.
func (m *Mock) Languages(ctx context.Context) ([]string, error) {
	if len(m.Supported) > 0 {
		return m.Supported, nil
	}
	return []string{"en", "es", "fr", "de"}, nil
}

func mockKey(sourceLang, targetLang, text string) string {
	return strings.ToLower(sourceLang) + "|" + strings.ToLower(targetLang) + "|" + text
}
