package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/domain/ports/adapter"
)

const (
	TierStructured = "structured"
	TierDirect     = "direct"
	TierTemplate   = "template"

	overviewMarker = "STUDY PLAN OVERVIEW:"
)

var (
	dayHeaderRe = regexp.MustCompile(`(?im)^\s*DAY\s+\d+\s*:`)

	// Matched against the original text so byte offsets stay valid; an
	// uppercased copy can shift offsets for non-ASCII input.
	overviewMarkerRe = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(overviewMarker))
)

// Generator is one tier of the plan pipeline. Tiers are tried in order; a
// tier signals unsuitability with an error and the next one takes over.
type Generator interface {
	Tier() string
	Generate(ctx context.Context, pc model.PlanContext) (string, error)
}

// structuredGenerator is the richest tier: four sequential provider calls
// (strategies, resource mapping, day-by-day planning, review) where each step
// feeds the next. Any failing step fails the whole tier.
type structuredGenerator struct {
	ai        adapter.TextGenerator
	budget    *PromptBudget
	maxTokens int
	log       *zerolog.Logger
}

func NewStructuredGenerator(ai adapter.TextGenerator, budget *PromptBudget, maxTokens int, logger *zerolog.Logger) Generator {
	sl := logger.With().Str("component", "StructuredGenerator").Logger()
	return &structuredGenerator{ai: ai, budget: budget, maxTokens: maxTokens, log: &sl}
}

func (g *structuredGenerator) Tier() string { return TierStructured }

func (g *structuredGenerator) Generate(ctx context.Context, pc model.PlanContext) (string, error) {
	if g.ai == nil {
		return "", domain.ErrNoProvider
	}

	strategies, err := g.step(ctx, "strategy", strategyPrompt(pc))
	if err != nil {
		return "", err
	}
	resources, err := g.step(ctx, "resources", resourcePrompt(pc, strategies))
	if err != nil {
		return "", err
	}
	draft, err := g.step(ctx, "planner", plannerPrompt(pc, strategies, resources))
	if err != nil {
		return "", err
	}
	final, err := g.step(ctx, "review", reviewPrompt(pc, draft))
	if err != nil {
		return "", err
	}
	return final, nil
}

func (g *structuredGenerator) step(ctx context.Context, name, prompt string) (string, error) {
	out, err := g.ai.Generate(ctx, g.budget.fit(prompt), g.maxTokens)
	if err != nil {
		return "", fmt.Errorf("%s step: %w", name, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%s step: %w", name, domain.ErrEmptyCandidate)
	}
	g.log.Debug().Str("step", name).Int("chars", len(out)).Msg("pipeline step finished")
	return out, nil
}

// directGenerator is the single-shot tier: one provider call, then a local
// repair pass that re-segments the output into day sections when the model
// ignored the header format.
type directGenerator struct {
	ai        adapter.TextGenerator
	budget    *PromptBudget
	maxTokens int
	log       *zerolog.Logger
}

func NewDirectGenerator(ai adapter.TextGenerator, budget *PromptBudget, maxTokens int, logger *zerolog.Logger) Generator {
	sl := logger.With().Str("component", "DirectGenerator").Logger()
	return &directGenerator{ai: ai, budget: budget, maxTokens: maxTokens, log: &sl}
}

func (g *directGenerator) Tier() string { return TierDirect }

func (g *directGenerator) Generate(ctx context.Context, pc model.PlanContext) (string, error) {
	if g.ai == nil {
		return "", domain.ErrNoProvider
	}
	out, err := g.ai.Generate(ctx, g.budget.fit(directPrompt(pc)), g.maxTokens)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", domain.ErrEmptyCandidate
	}
	repaired, fixed := repairDayHeaders(out, pc.Days)
	if fixed {
		g.log.Debug().Int("days", pc.Days).Msg("re-segmented plan with missing day headers")
	}
	return repaired, nil
}

// repairDayHeaders rewrites a plan whose day headers are missing or
// miscounted. The text body is split into equal runs of paragraphs and each
// run gets an explicit "DAY N:" label. Returns the (possibly unchanged) text
// and whether a repair happened.
func repairDayHeaders(text string, days int) (string, bool) {
	if days <= 0 || len(dayHeaderRe.FindAllString(text, -1)) == days {
		return text, false
	}

	// Preserve an overview section if the model produced one.
	overview := ""
	body := text
	if loc := overviewMarkerRe.FindStringIndex(text); loc != nil {
		rest := text[loc[0]:]
		if nl := strings.Index(rest, "\n\n"); nl >= 0 {
			overview = strings.TrimSpace(rest[:nl])
			body = rest[nl:]
		}
	}
	body = dayHeaderRe.ReplaceAllString(body, "")

	paras := splitParagraphs(body)
	if len(paras) == 0 {
		return text, false
	}

	var sb strings.Builder
	if overview != "" {
		sb.WriteString(overview)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(overviewMarker + " Re-structured study plan.\n\n")
	}
	per := len(paras) / days
	if per == 0 {
		per = 1
	}
	for d := 0; d < days; d++ {
		fmt.Fprintf(&sb, "DAY %d:\n", d+1)
		lo := d * per
		hi := lo + per
		if d == days-1 || hi > len(paras) {
			hi = len(paras)
		}
		if lo >= len(paras) {
			sb.WriteString("Review and consolidate earlier material.\n\n")
			continue
		}
		sb.WriteString(strings.Join(paras[lo:hi], "\n\n"))
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String()), true
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// templateGenerator is the terminal tier. It is pure computation over the
// plan context and cannot fail, so the pipeline always has an answer. The
// output is built to clear every validation rule: exact day count, explicit
// minute allocations summing to the daily budget, a named strategy, and
// scheduled breaks.
type templateGenerator struct{}

func NewTemplateGenerator() Generator { return templateGenerator{} }

func (templateGenerator) Tier() string { return TierTemplate }

func (templateGenerator) Generate(_ context.Context, pc model.PlanContext) (string, error) {
	days := pc.Days
	if days <= 0 {
		days = 7
	}
	hoursPerDay := pc.HoursPerDay
	if hoursPerDay <= 0 {
		hoursPerDay = 2
	}
	subject := orDefault(pc.Subject, "your subject")

	perDay := int(hoursPerDay * 60)
	if perDay < 30 {
		perDay = 30
	}
	// Two work blocks with two 5-minute breaks; everything sums to perDay.
	blockA := (perDay - 10) / 2
	blockB := perDay - 10 - blockA

	topics := pc.DifficultTopics
	resources := pc.ResourceNames(5)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s A %d-day plan for %s at %.1f hours per day, built around spaced repetition and active recall.\n\n",
		overviewMarker, days, subject, hoursPerDay)

	for d := 1; d <= days; d++ {
		fmt.Fprintf(&sb, "DAY %d:\n", d)
		focus := dayFocus(d, days, subject, topics)
		fmt.Fprintf(&sb, "- %d minutes: %s, using the active recall technique.\n", blockA, focus)
		sb.WriteString("- 5-minute break.\n")
		if len(resources) > 0 {
			res := resources[(d-1)%len(resources)]
			fmt.Fprintf(&sb, "- %d minutes: practice exercises from %s, chapter %d.\n", blockB, res, d)
		} else {
			fmt.Fprintf(&sb, "- %d minutes: practice problems and self-testing on today's material.\n", blockB)
		}
		sb.WriteString("- 5-minute break, then write a three-line summary of what you learned.\n\n")
	}

	sb.WriteString("Tip: review each day's summary the next morning to reinforce retention.")
	return sb.String(), nil
}

func dayFocus(day, days int, subject string, topics []string) string {
	switch {
	case day == 1:
		return fmt.Sprintf("survey the fundamentals of %s and list open questions", subject)
	case day == days:
		return fmt.Sprintf("full review of %s and a timed self-assessment", subject)
	case len(topics) > 0:
		return fmt.Sprintf("deep work on %s", topics[(day-2)%len(topics)])
	default:
		return fmt.Sprintf("study the next core topic in %s and take structured notes", subject)
	}
}
