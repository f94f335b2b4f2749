// Package docs appends formatted entries to the compilation document.
package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"evidence-bot/format"
)

const defaultBaseURL = "https://docs.googleapis.com"

// Client appends content to a Google Doc via the batchUpdate endpoint.
type Client struct {
	documentID string
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

// NewClient creates a document sink for the given document.
func NewClient(documentID, apiKey string, opts ...Option) *Client {
	c := &Client{
		documentID: documentID,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AppendEntry appends a formatted entry to the end of the document.
func (c *Client) AppendEntry(ctx context.Context, entry *format.DocumentEntry) error {
	reqBody := batchUpdateRequest{
		Requests: []updateRequest{
			{
				InsertText: &insertTextRequest{
					Text:                 RenderEntry(entry),
					EndOfSegmentLocation: &segmentLocation{},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/documents/%s:batchUpdate?key=%s", c.baseURL, c.documentID, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}

// RenderEntry flattens a document entry into the text block appended to the
// document: title, tag line, table block, then the optional remark and the
// attachment section.
func RenderEntry(entry *format.DocumentEntry) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(entry.Title + "\n")
	sb.WriteString(entry.Tags + "\n\n")
	sb.WriteString(entry.Table + "\n")
	if entry.Remark != "" {
		sb.WriteString("※" + entry.Remark + "\n")
	}
	if entry.Attachment != "" {
		sb.WriteString("添付ファイル：" + entry.Attachment + "\n")
	}
	return sb.String()
}

// Google Docs API types

type batchUpdateRequest struct {
	Requests []updateRequest `json:"requests"`
}

type updateRequest struct {
	InsertText *insertTextRequest `json:"insertText,omitempty"`
}

type insertTextRequest struct {
	Text                 string           `json:"text"`
	EndOfSegmentLocation *segmentLocation `json:"endOfSegmentLocation,omitempty"`
}

type segmentLocation struct {
	SegmentID string `json:"segmentId,omitempty"`
}
