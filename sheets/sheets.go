// Package sheets reads form-response rows from the tabular source.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://sheets.googleapis.com"

// Client reads rows from a Google Spreadsheet via the Sheets v4 values API.
type Client struct {
	spreadsheetID string
	sheetName     string
	apiKey        string
	baseURL       string
	httpClient    *http.Client
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

// NewClient creates a spreadsheet row source.
func NewClient(spreadsheetID, sheetName, apiKey string, opts ...Option) *Client {
	c := &Client{
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRows returns all rows of the response sheet, header row first. Row
// numbers are implied by position (1-based).
func (c *Client) ListRows(ctx context.Context) ([][]string, error) {
	reqURL := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s",
		c.baseURL, c.spreadsheetID, url.PathEscape(c.sheetName), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch values: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var vr valuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return vr.Values, nil
}

type valuesResponse struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}
