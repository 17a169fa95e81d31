package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"study-plan-assistant/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*GeminiAdapter)(nil)

// GeminiAdapter generates text through the official Gemini SDK.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: model}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var cfg *genai.GenerateContentConfig
	if maxTokens > 0 {
		cfg = &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty candidate")
	}
	return text, nil
}
