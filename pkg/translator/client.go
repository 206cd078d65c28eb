// Package translator provides a client for machine-translation
// backends used by validation and back-translation.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/medlingo/transqa/internal/resilience"
)

// ErrUnsupportedLanguage is returned when the backend does not support
// the requested language pair.
var ErrUnsupportedLanguage = eris.New("translator: unsupported language pair")

// ErrBackendUnavailable is returned when the backend cannot be reached
// after retries.
var ErrBackendUnavailable = eris.New("translator: backend unavailable")

// Request describes a single translation.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// Model selects a backend engine variant. Empty means the backend
	// default; ensemble back-translation uses distinct variants.
	Model string `json:"model,omitempty"`
}

// Response is the backend's translation result.
type Response struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// Client defines the translation backend operations.
type Client interface {
	// Translate translates text between the given languages.
	Translate(ctx context.Context, req Request) (*Response, error)
	// Languages lists supported language codes.
	Languages(ctx context.Context) ([]string, error)
}

// Option configures the HTTP client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) { c.retry = p }
}

// WithBreaker installs a circuit breaker around backend calls.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) { c.breaker = b }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
	breaker *resilience.Breaker
}

// NewClient creates a translation backend client.
func NewClient(apiKey, baseURL string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		retry:   resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.LogRetries("translator", "translate")
	}
	return c
}

func (c *httpClient) Translate(ctx context.Context, req Request) (*Response, error) {
	if req.SourceLang == "" || req.TargetLang == "" {
		return nil, eris.Wrap(ErrUnsupportedLanguage, "translator: empty language code")
	}

	call := func(ctx context.Context) (*Response, error) {
		return c.doTranslate(ctx, req)
	}
	if c.breaker != nil {
		inner := call
		call = func(ctx context.Context) (*Response, error) {
			return resilience.CallValue(ctx, c.breaker, inner)
		}
	}

	resp, err := resilience.DoValue(ctx, c.retry, call)
	if err != nil {
		if resilience.IsTransient(err) || eris.Is(err, resilience.ErrBreakerOpen) {
			return nil, eris.Wrap(ErrBackendUnavailable, err.Error())
		}
		return nil, err
	}
	return resp, nil
}

func (c *httpClient) doTranslate(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "translator: rate limit wait")
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "translator: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/translate", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "translator: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, resilience.MarkTransient(eris.Wrap(err, "translator: request failed"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "translator: read response body")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, eris.Wrapf(ErrUnsupportedLanguage, "%s -> %s", req.SourceLang, req.TargetLang)
	case resilience.RetryableStatus(resp.StatusCode):
		return nil, resilience.MarkTransient(
			eris.Errorf("translator: status %d: %s", resp.StatusCode, string(body)), resp.StatusCode)
	default:
		return nil, eris.Errorf("translator: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "translator: unmarshal response")
	}
	return &out, nil
}

func (c *httpClient) Languages(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/languages", nil)
	if err != nil {
		return nil, eris.Wrap(err, "translator: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(ErrBackendUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "translator: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("translator: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Languages []string `json:"languages"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "translator: unmarshal response")
	}
	return out.Languages, nil
}
