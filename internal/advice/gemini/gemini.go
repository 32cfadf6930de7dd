// Package gemini implements advice.Generator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"finflow/internal/advice"
)

const DefaultModel = "gemini-1.5-flash"

var ErrEmptyResponse = errors.New("model returned no text")

type Client struct {
	models *genai.Models
	model  string
	config *genai.GenerateContentConfig
}

var _ advice.Generator = (*Client)(nil)

// Option adjusts the client configuration before the client is built.
type Option func(*genai.ClientConfig)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) Option {
	return func(cc *genai.ClientConfig) { cc.HTTPOptions.BaseURL = url }
}

// New creates a client authenticated with an API key.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	temperature, topP, topK := float32(advice.Temperature), float32(advice.TopP), float32(advice.TopK)
	slog.InfoContext(ctx, "Gemini advice client ready", "model", model)
	return &Client{
		models: client.Models,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature: &temperature,
			TopP:        &topP,
			TopK:        &topK,
		},
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
