package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/infra/metrics"
)

// PlanPipeline walks the generation tiers in order of richness and returns
// the first well-formed candidate. Tier errors select the next tier instead
// of surfacing; the template tier is pure computation, so the pipeline as a
// whole cannot fail.
type PlanPipeline struct {
	gens      []Generator
	validator *ValidationEngine
	minChars  int
	log       *zerolog.Logger
}

func NewPlanPipeline(gens []Generator, validator *ValidationEngine, minChars int, logger *zerolog.Logger) *PlanPipeline {
	sl := logger.With().Str("component", "PlanPipeline").Logger()
	return &PlanPipeline{gens: gens, validator: validator, minChars: minChars, log: &sl}
}

// Generate runs the tier cascade once.
func (p *PlanPipeline) Generate(ctx context.Context, pc model.PlanContext) model.GenerationResult {
	for _, g := range p.gens {
		started := time.Now()
		content, err := g.Generate(ctx, pc)
		elapsed := time.Since(started).Seconds()

		switch {
		case err != nil:
			metrics.ObserveTier(g.Tier(), "failed", elapsed)
			p.log.Warn().Err(err).Str("tier", g.Tier()).Msg("generation tier failed, descending")
		case !p.wellFormed(content):
			metrics.ObserveTier(g.Tier(), "rejected", elapsed)
			p.log.Warn().Str("tier", g.Tier()).Int("chars", len(content)).Msg("generation tier output malformed, descending")
		default:
			metrics.ObserveTier(g.Tier(), "accepted", elapsed)
			return model.GenerationResult{Content: content, Tier: g.Tier()}
		}
	}

	// Unreachable as long as the template tier is registered last, but a
	// static answer beats an empty one if the cascade is misconfigured.
	content, _ := NewTemplateGenerator().Generate(ctx, pc)
	return model.GenerationResult{Content: content, Tier: TierTemplate}
}

// GeneratePlan runs the cascade, validates the winner, and on failure gives
// the pipeline exactly one regeneration round with the issues embedded in the
// context. The second candidate is final either way.
func (p *PlanPipeline) GeneratePlan(ctx context.Context, pc model.PlanContext) (model.GenerationResult, model.ValidationReport) {
	res := p.Generate(ctx, pc)
	report := p.validator.Validate(p.requestFor(pc, res.Content))
	if report.Pass {
		return res, report
	}

	p.log.Info().
		Str("tier", res.Tier).
		Int("issues", len(report.Issues)).
		Msg("plan failed validation, regenerating once")

	pc.Issues = report.IssueMessages()
	res = p.Generate(ctx, pc)
	report = p.validator.Validate(p.requestFor(pc, res.Content))
	return res, report
}

func (p *PlanPipeline) requestFor(pc model.PlanContext, content string) model.ValidationRequest {
	return model.ValidationRequest{
		ExpectedDays:        pc.Days,
		ExpectedHoursPerDay: pc.HoursPerDay,
		PlanText:            content,
	}
}

// wellFormed is the cheap structural gate applied before validation: enough
// text to be a real plan, an overview header, and at least one day section.
func (p *PlanPipeline) wellFormed(content string) bool {
	if len(content) < p.minChars {
		return false
	}
	upper := strings.ToUpper(content)
	return strings.Contains(upper, overviewMarker) && dayHeaderRe.MatchString(content)
}
