// Package gemini provides a client for Gemini-style generateContent REST
// endpoints, exposing the two narrow operations ingestion needs: genre
// classification and description generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/config"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 60 * time.Second
)

// Client is a Gemini generateContent API client. A client without an API key
// is valid but disabled; every call returns ErrDisabled.
type Client struct {
	http   *http.Client
	logger *slog.Logger

	baseURL string
	apiKey  string
	model   string
}

// New creates a new Gemini client from configuration. Zero-valued settings
// fall back to package defaults.
func New(cfg config.GeminiConfig, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
	}
}

// Enabled reports whether the client has an API key and can make calls.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// generate executes one generateContent call and returns the first text part
// of the reply. jsonOutput forces deterministic JSON generation, used for
// classification where the reply is machine-parsed.
func (c *Client) generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	reqBody := rawGenerateRequest{
		Contents: []rawContent{
			{Parts: []rawPart{{Text: prompt}}},
		},
	}
	if jsonOutput {
		temperature := 0.0
		reqBody.GenerationConfig = &rawGenerationConfig{
			Temperature:      &temperature,
			ResponseMIMEType: "application/json",
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("gemini request",
		"model", c.model,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to parsing
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrUnauthorized
	case http.StatusTooManyRequests:
		return "", ErrRateLimited
	case http.StatusBadRequest:
		return "", ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return "", ErrServer
		}
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed rawGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	text := parsed.firstText()
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// Raw API request/response types (internal)

type rawGenerateRequest struct {
	Contents         []rawContent         `json:"contents"`
	GenerationConfig *rawGenerationConfig `json:"generationConfig,omitempty"`
}

type rawContent struct {
	Parts []rawPart `json:"parts"`
	Role  string    `json:"role,omitempty"`
}

type rawPart struct {
	Text string `json:"text"`
}

type rawGenerationConfig struct {
	// Temperature is a pointer so an explicit zero survives serialization.
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

type rawGenerateResponse struct {
	Candidates []rawCandidate `json:"candidates"`
}

type rawCandidate struct {
	Content      rawContent `json:"content"`
	FinishReason string     `json:"finishReason,omitempty"`
}

// firstText returns the first non-empty text part of the first candidate.
func (r *rawGenerateResponse) firstText() string {
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
