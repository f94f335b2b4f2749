// Package webhook delivers notification messages to a Discord webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier posts preformatted messages to a Discord webhook URL. Delivery
// succeeds only on HTTP 204; every other status is a failure.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		n.httpClient.Timeout = d
	}
}

// NewNotifier creates a webhook notifier.
func NewNotifier(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts the message. One round trip, no retries.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	payload := webhookPayload{Content: message, TTS: false}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("webhook rejected: status %d", resp.StatusCode)
	}

	return nil
}

type webhookPayload struct {
	Content string `json:"content"`
	TTS     bool   `json:"tts"`
}
