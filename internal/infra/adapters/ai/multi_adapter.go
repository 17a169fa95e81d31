package ai

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*MultiAdapter)(nil)

// MultiAdapter chains providers in configuration order. A request goes to the
// first provider; on error the next one is tried. The chain fails only when
// every provider does.
type MultiAdapter struct {
	chain []adapter.TextGenerator
	log   *zerolog.Logger
}

func NewMultiAdapter(logger *zerolog.Logger, chain ...adapter.TextGenerator) *MultiAdapter {
	sl := logger.With().Str("component", "MultiAdapter").Logger()
	kept := make([]adapter.TextGenerator, 0, len(chain))
	for _, g := range chain {
		if g != nil {
			kept = append(kept, g)
		}
	}
	return &MultiAdapter{chain: kept, log: &sl}
}

func (m *MultiAdapter) Name() string {
	names := make([]string, 0, len(m.chain))
	for _, g := range m.chain {
		names = append(names, g.Name())
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *MultiAdapter) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if len(m.chain) == 0 {
		return "", domain.ErrNoProvider
	}
	var lastErr error
	for _, g := range m.chain {
		out, err := g.Generate(ctx, prompt, maxTokens)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// No point falling through providers once the caller gave up.
			return "", ctx.Err()
		}
		m.log.Warn().Err(err).Str("provider", g.Name()).Msg("provider failed, trying next")
	}
	return "", lastErr
}
