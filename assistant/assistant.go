// Package assistant answers questions about collected evidence using the
// OpenAI chat completions API.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com"
)

const systemPrompt = `You are a helpful assistant for an evidence collection system. ` +
	`You help users understand, analyze, and work with collected evidence data. ` +
	`Provide clear, concise, and helpful responses.`

// Assistant is an OpenAI-backed question answering client.
type Assistant struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithModel sets the model to use.
func WithModel(model string) Option {
	return func(a *Assistant) {
		a.model = model
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(a *Assistant) {
		a.baseURL = url
	}
}

// NewAssistant creates a question answering client.
func NewAssistant(apiKey string, opts ...Option) *Assistant {
	a := &Assistant{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask sends a question, optionally prefixed with context, and returns the
// assistant's answer.
func (a *Assistant) Ask(ctx context.Context, question, contextText string) (string, error) {
	userPrompt := question
	if contextText != "" {
		userPrompt = fmt.Sprintf("Context: %s\n\nQuestion: %s", contextText, question)
	}

	reqBody := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   1000,
		Temperature: 0.7,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := a.baseURL + "/v1/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

// OpenAI API types

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
