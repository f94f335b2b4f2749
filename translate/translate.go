// Package translate provides the machine-translation adapter. Translation is
// best-effort enrichment: provider failures fall back to the original text.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://translation.googleapis.com"

// Provider is a text-in/text-out translation capability.
type Provider interface {
	TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
}

// Client calls the Google Translate v2 REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a new translation API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TranslateBatch translates texts and returns a same-length slice of results.
func (c *Client) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	reqBody := translateRequest{
		Q:      texts,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/language/translate/v2?key=%s", c.baseURL, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var tr translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(tr.Data.Translations) != len(texts) {
		return nil, fmt.Errorf("expected %d translations, got %d", len(texts), len(tr.Data.Translations))
	}

	out := make([]string, len(texts))
	for i, t := range tr.Data.Translations {
		out[i] = t.TranslatedText
	}
	return out, nil
}

// Translator wraps a Provider with the fallback policy: empty input is
// returned unchanged without a provider call, and any provider failure yields
// the original text with a logged warning. No retries are performed.
type Translator struct {
	provider   Provider
	sourceLang string
	targetLang string
}

// NewTranslator creates a Translator for a fixed language pair.
func NewTranslator(provider Provider, sourceLang, targetLang string) *Translator {
	return &Translator{
		provider:   provider,
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

// Translate returns the translated text, or the original text when the input
// is empty or the provider fails. A result equal to a non-empty input means
// "translation unavailable", not "no translation needed".
func (t *Translator) Translate(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	results, err := t.provider.TranslateBatch(ctx, []string{text}, t.sourceLang, t.targetLang)
	if err != nil {
		slog.Warn("translation failed, using original text", "error", err)
		return text
	}
	return results[0]
}

// Translation API types

type translateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}
