package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"study-plan-assistant/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextGenerator = (*CompatAdapter)(nil)

// CompatAdapter talks to any OpenAI-compatible gateway (self-hosted vLLM,
// Ollama fronts, proxy providers). Chat completions path is the same as
// OpenAI: /chat/completions with Authorization: Bearer <key>.
type CompatAdapter struct {
	apiKey string
	base   string // e.g., http://localhost:11434/v1
	model  string
	client *http.Client
}

func NewCompatAdapter(apiKey, model, base string) (*CompatAdapter, error) {
	if base == "" {
		return nil, errors.New("compat base url empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &CompatAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *CompatAdapter) Name() string { return "compat" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *CompatAdapter) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := struct {
		Model     string        `json:"model"`
		Messages  []chatMessage `json:"messages"`
		MaxTokens int           `json:"max_tokens,omitempty"`
	}{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("compat gateway http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, ch := range payload.Choices {
		if ch.Message.Content != "" {
			return ch.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}
