//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"study-plan-assistant/internal/domain/model"
)

func TestTemplateGeneratorAlwaysValid(t *testing.T) {
	engine := NewValidationEngine()
	gen := NewTemplateGenerator()

	shapes := []struct {
		days  int
		hours float64
	}{
		{1, 1}, {3, 2}, {5, 1.5}, {7, 2}, {14, 4}, {30, 0.5},
	}
	for _, s := range shapes {
		t.Run(fmt.Sprintf("%dd_%.1fh", s.days, s.hours), func(t *testing.T) {
			pc := model.PlanContext{
				Subject:         "Linear Algebra",
				Days:            s.days,
				HoursPerDay:     s.hours,
				DifficultTopics: []string{"eigenvalues"},
				Resources:       []model.Resource{{ID: "r1", Name: "Strang", Type: "book"}},
			}
			out, err := gen.Generate(context.Background(), pc)
			if err != nil {
				t.Fatalf("template tier must not fail: %v", err)
			}
			if len(out) < 200 {
				t.Fatalf("output too short: %d chars", len(out))
			}
			if got := len(dayHeaderRe.FindAllString(out, -1)); got != s.days {
				t.Fatalf("expected %d day headers, got %d", s.days, got)
			}
			report := engine.Validate(model.ValidationRequest{
				ExpectedDays:        s.days,
				ExpectedHoursPerDay: s.hours,
				PlanText:            out,
			})
			if !report.Pass {
				t.Fatalf("template output failed validation: %v", report.Issues)
			}
		})
	}
}

func TestTemplateGeneratorDefaultsEmptyContext(t *testing.T) {
	out, err := NewTemplateGenerator().Generate(context.Background(), model.PlanContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(dayHeaderRe.FindAllString(out, -1)); got != 7 {
		t.Fatalf("empty context should default to 7 days, got %d headers", got)
	}
}

func TestStructuredGeneratorStepChain(t *testing.T) {
	gen := &mockGen{responses: []string{"strategies", "resources", "draft plan", "final plan"}}
	sg := NewStructuredGenerator(gen, NewPromptBudget(0), 1024, newTestLogger())

	out, err := sg.Generate(context.Background(), model.PlanContext{Days: 3, HoursPerDay: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "final plan" {
		t.Fatalf("expected the review step's output, got %q", out)
	}
	if gen.callCount() != 4 {
		t.Fatalf("expected 4 provider calls, got %d", gen.callCount())
	}
	// The planner step must see the earlier steps' output.
	if !strings.Contains(gen.prompts[2], "strategies") || !strings.Contains(gen.prompts[2], "resources") {
		t.Fatal("planner prompt should embed strategy and resource steps")
	}
}

func TestStructuredGeneratorFailsWholeTier(t *testing.T) {
	gen := &mockGen{responses: []string{"strategies"}} // exhausted on step 2
	sg := NewStructuredGenerator(gen, NewPromptBudget(0), 1024, newTestLogger())

	if _, err := sg.Generate(context.Background(), model.PlanContext{Days: 3, HoursPerDay: 2}); err == nil {
		t.Fatal("expected a failing step to fail the tier")
	}
}

func TestDirectGeneratorPropagatesProviderError(t *testing.T) {
	gen := &mockGen{Err: errors.New("quota exhausted")}
	dg := NewDirectGenerator(gen, NewPromptBudget(0), 1024, newTestLogger())

	if _, err := dg.Generate(context.Background(), model.PlanContext{Days: 3, HoursPerDay: 2}); err == nil {
		t.Fatal("expected provider error to surface")
	}
}

func TestRepairDayHeaders(t *testing.T) {
	t.Run("correct header count untouched", func(t *testing.T) {
		text := "STUDY PLAN OVERVIEW: ok\n\nDAY 1:\nwork\n\nDAY 2:\nmore work"
		out, fixed := repairDayHeaders(text, 2)
		if fixed {
			t.Fatal("should not repair a correctly segmented plan")
		}
		if out != text {
			t.Fatal("text should be unchanged")
		}
	})

	t.Run("headerless text gets resegmented", func(t *testing.T) {
		text := "Intro paragraph about studying.\n\nSecond block of work.\n\nThird block.\n\nFourth block."
		out, fixed := repairDayHeaders(text, 2)
		if !fixed {
			t.Fatal("expected a repair")
		}
		if got := len(dayHeaderRe.FindAllString(out, -1)); got != 2 {
			t.Fatalf("expected 2 day headers after repair, got %d", got)
		}
	})

	t.Run("lowercase marker after non-ascii text", func(t *testing.T) {
		// "ſ" and "ß" change byte length when uppercased, so the marker must
		// be located on the original bytes, not an uppercased copy.
		text := "Notes from the ſeminar on Maß theory.\n\nstudy plan overview: keep this line\n\nfirst block of work.\n\nsecond block of work."
		out, fixed := repairDayHeaders(text, 2)
		if !fixed {
			t.Fatal("expected a repair")
		}
		if !utf8.ValidString(out) {
			t.Fatal("repair produced invalid UTF-8")
		}
		if !strings.Contains(out, "study plan overview: keep this line") {
			t.Fatalf("overview line mangled:\n%s", out)
		}
		if got := len(dayHeaderRe.FindAllString(out, -1)); got != 2 {
			t.Fatalf("expected 2 day headers after repair, got %d", got)
		}
	})

	t.Run("more headers than days collapses to requested count", func(t *testing.T) {
		text := "DAY 1:\na\n\nDAY 2:\nb\n\nDAY 3:\nc"
		out, fixed := repairDayHeaders(text, 2)
		if !fixed {
			t.Fatal("expected a repair")
		}
		if got := len(dayHeaderRe.FindAllString(out, -1)); got != 2 {
			t.Fatalf("expected 2 day headers after repair, got %d", got)
		}
	})
}

func TestPromptBudgetTruncates(t *testing.T) {
	b := NewPromptBudget(10)
	long := strings.Repeat("study planning every day ", 200)
	fitted := b.fit(long)
	if len(fitted) >= len(long) {
		t.Fatal("expected truncation")
	}
	if got := b.fit("short"); got != "short" {
		t.Fatalf("short prompt should be untouched, got %q", got)
	}
}

func TestPromptBudgetFallbackCutsOnRuneBoundary(t *testing.T) {
	// Encoder absent: the byte-estimate path must still emit valid UTF-8.
	b := &PromptBudget{maxTokens: 1} // 4-byte limit lands mid-rune below
	fitted := b.fit(strings.Repeat("日", 10))
	if len(fitted) >= 4*3 {
		t.Fatal("expected truncation")
	}
	if !utf8.ValidString(fitted) {
		t.Fatalf("truncation split a rune: %q", fitted)
	}
	if fitted != "日" {
		t.Fatalf("expected a single whole rune, got %q", fitted)
	}
}
