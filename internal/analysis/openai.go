// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/custodia/internal/models"
)

const (
	chatCompletionsPath = "/v1/chat/completions"

	// maxTokens bounds the analysis text; the assessment is meant to be
	// concise.
	maxTokens   = 150
	temperature = 0.2
)

// ClientConfig holds the configuration for an OpenAI-compatible endpoint.
type ClientConfig struct {
	BaseURL string // e.g. https://api.openai.com
	APIKey  string // Bearer token (empty = no auth header)
	Model   string // e.g. gpt-4o-mini
}

// Client implements Analyzer against an OpenAI-compatible chat completions
// API.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a new analysis client. The caller bounds individual
// calls through the context; the http.Client itself carries no timeout.
func NewClient(config ClientConfig) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze sends the rendered log entries to the analysis service and returns
// the assessment text. An empty entry set is valid and produces an
// assessment of an empty log window.
func (c *Client) Analyze(ctx context.Context, entries []models.AccessLogEntry) (string, error) {
	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(entries)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	body, err := c.post(ctx, chatCompletionsPath, payload)
	if err != nil {
		return "", fmt.Errorf("analysis request: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("analysis decode: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("analysis: empty response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// post sends a JSON payload and returns the raw response body.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
