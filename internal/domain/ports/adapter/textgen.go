package adapter

import "context"

// TextGenerator is the port for the opaque text-generation capability. The
// pipeline assumes no retry or backoff behind this boundary; its own tiering
// is the retry strategy.
type TextGenerator interface {
	// Generate turns a prompt into text. May fail or time out.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
