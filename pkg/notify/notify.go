// Package notify delivers alert notifications to configured channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Message is a channel-agnostic notification payload.
type Message struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Severity string            `json:"severity"`
	Fields   map[string]string `json:"fields,omitempty"`
	SentAt   time.Time         `json:"sent_at"`
}

// Sender delivers a message to one channel.
type Sender interface {
	// Name identifies the channel ("log", "webhook").
	Name() string
	// Send delivers the message.
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the application log. It is the
// always-available fallback channel.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

// Send implements Sender.
func (LogSender) Send(_ context.Context, msg Message) error {
	zap.L().Warn("alert notification",
		zap.String("title", msg.Title),
		zap.String("severity", msg.Severity),
		zap.String("body", msg.Body),
	)
	return nil
}

// WebhookSender POSTs notifications as JSON to a configured URL.
type WebhookSender struct {
	URL  string
	http *http.Client
}

// NewWebhookSender returns a webhook sender for the given URL.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		URL:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSender) Name() string { return "webhook" }

// Send implements Sender.
func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "notify: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return eris.Errorf("notify: webhook status %d", resp.StatusCode)
	}
	return nil
}

// Fanout sends to every sender, logging failures and returning the
// first error encountered.
func Fanout(ctx context.Context, senders []Sender, msg Message) error {
	var firstErr error
	for _, s := range senders {
		if err := s.Send(ctx, msg); err != nil {
			zap.L().Error("notification delivery failed",
				zap.String("channel", s.Name()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
