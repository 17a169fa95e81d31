package ai

import (
	"context"
	"fmt"
	"time"

	"study-plan-assistant/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*NoopAdapter)(nil)

// NoopAdapter is the dev-mode stand-in when no provider key is configured.
// It echoes a canned answer after a short simulated delay.
type NoopAdapter struct{}

func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (a *NoopAdapter) Name() string { return "noop" }

func (a *NoopAdapter) Generate(ctx context.Context, prompt string, _ int) (string, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("[noop] received a %d-character prompt; configure a provider key for real answers.", len(prompt)), nil
}
