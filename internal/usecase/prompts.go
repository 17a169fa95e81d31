package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"study-plan-assistant/internal/domain/model"
)

// PromptBudget truncates oversized prompts before they reach a provider.
// Counting uses the cl100k_base encoding; if the encoder cannot be loaded we
// fall back to a crude 4-chars-per-token estimate rather than refusing to
// generate.
type PromptBudget struct {
	maxTokens int
	enc       *tiktoken.Tiktoken
}

func NewPromptBudget(maxTokens int) *PromptBudget {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &PromptBudget{maxTokens: maxTokens, enc: enc}
}

func (b *PromptBudget) fit(prompt string) string {
	if b.maxTokens <= 0 {
		return prompt
	}
	if b.enc == nil {
		limit := b.maxTokens * 4
		if len(prompt) <= limit {
			return prompt
		}
		// Back off to a rune boundary so the cut never splits a character.
		for limit > 0 && !utf8.RuneStart(prompt[limit]) {
			limit--
		}
		return prompt[:limit]
	}
	toks := b.enc.Encode(prompt, nil, nil)
	if len(toks) <= b.maxTokens {
		return prompt
	}
	return b.enc.Decode(toks[:b.maxTokens])
}

func contextHeader(pc model.PlanContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s\n", orDefault(pc.Subject, "General studies"))
	fmt.Fprintf(&sb, "Goal: %s\n", orDefault(pc.StudyGoal, "Improve understanding"))
	fmt.Fprintf(&sb, "Duration: %d days, %.1f hours per day\n", pc.Days, pc.HoursPerDay)
	fmt.Fprintf(&sb, "Learning style: %s\n", orDefault(pc.LearningStyle, "mixed"))
	if len(pc.DifficultTopics) > 0 {
		fmt.Fprintf(&sb, "Difficult topics: %s\n", strings.Join(pc.DifficultTopics, ", "))
	}
	if names := pc.ResourceNames(10); len(names) > 0 {
		fmt.Fprintf(&sb, "Available resources: %s\n", strings.Join(names, ", "))
	}
	return sb.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// revisionNotes embeds the previous round's validation issues so the provider
// knows exactly what to fix.
func revisionNotes(pc model.PlanContext) string {
	if len(pc.Issues) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nThe previous version of this plan failed review. Fix every point below:\n")
	for _, issue := range pc.Issues {
		fmt.Fprintf(&sb, "- %s\n", issue)
	}
	return sb.String()
}

func strategyPrompt(pc model.PlanContext) string {
	return fmt.Sprintf(`You are a learning strategy specialist.

%s
Recommend 2-3 named, evidence-based learning strategies suited to this student
(for example spaced repetition, the Pomodoro technique, active recall, the
Feynman method). For each strategy name it explicitly and explain in one or
two sentences how it applies to %s.`,
		contextHeader(pc), orDefault(pc.Subject, "this subject"))
}

func resourcePrompt(pc model.PlanContext, strategies string) string {
	return fmt.Sprintf(`You are a study resource curator.

%s
Recommended strategies:
%s

Map the available resources to the study goal. For every resource name the
specific chapters, sections, or page ranges to cover (use real numbers, never
"relevant chapters"). If no resources are listed, suggest 2-3 concrete free
ones with specific parts to study.`,
		contextHeader(pc), strategies)
}

func plannerPrompt(pc model.PlanContext, strategies, resources string) string {
	return fmt.Sprintf(`You are an expert study planner.

%s%s
Recommended strategies:
%s

Resource breakdown:
%s

Build a complete day-by-day study plan. Requirements:
- Start with the header "STUDY PLAN OVERVIEW:" followed by a short summary.
- Include exactly %d day sections labeled "DAY 1:", "DAY 2:", and so on.
- Allocate roughly %.1f hours of work per day and state every allocation
  explicitly in hours or minutes.
- Cite at least one strategy by name in the form "using the <name> technique".
- Schedule short breaks (for example "5-minute break") between blocks.
- Reference resources by specific chapter, section, or page numbers.`,
		contextHeader(pc), revisionNotes(pc), strategies, resources, pc.Days, pc.HoursPerDay)
}

func reviewPrompt(pc model.PlanContext, draft string) string {
	return fmt.Sprintf(`You are a meticulous study plan reviewer.

A draft plan for %d days at %.1f hours per day follows. Return the corrected
final plan only, no commentary. Keep the "STUDY PLAN OVERVIEW:" header and the
"DAY N:" section labels, make sure all %d days are present, every activity has
an explicit time allocation, breaks are scheduled, and at least one learning
strategy is cited by name.

Draft:
%s`, pc.Days, pc.HoursPerDay, pc.Days, draft)
}

// directPrompt is the single-shot fallback: one request that asks for the
// whole plan at once.
func directPrompt(pc model.PlanContext) string {
	return fmt.Sprintf(`You are an expert study planner.

%s%s
Student request: %s

Respond with a complete study plan in exactly this shape:
- First line: "STUDY PLAN OVERVIEW:" followed by a 2-3 sentence summary.
- Then exactly %d sections labeled "DAY 1:" through "DAY %d:".
- Every activity gets an explicit duration in hours or minutes, summing to
  about %.1f hours per day.
- Cite at least one named learning strategy ("using the <name> technique").
- Include short breaks such as "5-minute break".
- Reference study materials by specific chapter or section numbers.`,
		contextHeader(pc), revisionNotes(pc),
		orDefault(pc.UserQuery, "create a study plan"), pc.Days, pc.Days, pc.HoursPerDay)
}

func chatPrompt(message string) string {
	return fmt.Sprintf(`You are a friendly, knowledgeable education assistant. Answer
the student's question clearly and concisely. If the question would be better
served by a structured study plan, answer it anyway and mention that they can
ask for a personalized study plan.

Student: %s`, message)
}
