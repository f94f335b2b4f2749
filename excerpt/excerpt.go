// Package excerpt fetches readable text from quoted source pages, used as
// optional enrichment on structured records.
package excerpt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const defaultMaxLen = 2000

// Fetcher extracts a readable excerpt from a web page.
type Fetcher struct {
	httpClient *http.Client
	maxLen     int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.httpClient.Timeout = d
	}
}

// WithMaxLength sets the maximum excerpt length in characters.
func WithMaxLength(n int) Option {
	return func(f *Fetcher) {
		f.maxLen = n
	}
}

// NewFetcher creates an excerpt fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxLen:     defaultMaxLen,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Excerpt fetches the page and extracts its readable text, truncated to the
// configured length.
func (f *Fetcher) Excerpt(ctx context.Context, rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; EvidenceBot/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}

	content := strings.TrimSpace(article.TextContent)
	if runes := []rune(content); len(runes) > f.maxLen {
		content = string(runes[:f.maxLen])
	}

	return content, nil
}
