package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/infra/metrics"
)

// Rule checks one plan requirement. Each rule appends zero or one issue;
// rules are independent so the engine reports every violation, not just the
// first.
type Rule interface {
	Code() string
	Check(req model.ValidationRequest) *model.ValidationIssue
}

// ValidationEngine runs every rule against a candidate plan. Deterministic:
// identical input always yields identical issue sets, in rule order.
type ValidationEngine struct {
	rules []Rule
}

func NewValidationEngine() *ValidationEngine {
	return &ValidationEngine{rules: []Rule{
		timeBudgetRule{},
		dayCountRule{},
		resourceSpecificityRule{},
		strategyCitationRule{},
		breakInclusionRule{},
		timeAllocationRule{},
	}}
}

func (e *ValidationEngine) Validate(req model.ValidationRequest) model.ValidationReport {
	issues := make([]model.ValidationIssue, 0, len(e.rules))
	codes := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		if issue := r.Check(req); issue != nil {
			issues = append(issues, *issue)
			codes = append(codes, issue.Code)
		}
	}
	pass := len(issues) == 0
	metrics.ObserveValidation(pass, codes)
	return model.ValidationReport{Pass: pass, Issues: issues}
}

var (
	hoursRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)[\s-]*(?:hours?|hrs?)\b`)
	minutesRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)[\s-]*(?:minutes?|mins?)\b`)
	dayRe     = regexp.MustCompile(`(?i)\bday\s+(\d+)`)

	chapterNumRe = regexp.MustCompile(`(?i)\bchapter\s+\d+`)
	sectionNumRe = regexp.MustCompile(`(?i)\b(?:section|pages?)\s+\d+`)

	strategyRe = regexp.MustCompile(`(?i)\busing\s+(?:the\s+)?[a-z0-9' -]+?\s+(?:technique|method|strategy)\b`)
	breakRe    = regexp.MustCompile(`(?i)\b\d+[\s-]*minute\s+break`)
)

// timeBudgetRule sums every hour and minute mention and fails when the total
// falls below 80% of days x hours/day.
type timeBudgetRule struct{}

func (timeBudgetRule) Code() string { return "time_budget_exceeded" }

func (r timeBudgetRule) Check(req model.ValidationRequest) *model.ValidationIssue {
	measured := measuredHours(req.PlanText)
	expected := req.ExpectedTotalHours()
	if measured >= 0.8*expected {
		return nil
	}
	return &model.ValidationIssue{
		Code: r.Code(),
		Message: fmt.Sprintf("plan allocates %.1f hours but %.1f were requested (%d days x %.1f hours/day, 20%% slack allowed)",
			measured, expected, req.ExpectedDays, req.ExpectedHoursPerDay),
	}
}

func measuredHours(text string) float64 {
	var total float64
	for _, m := range hoursRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += v
		}
	}
	for _, m := range minutesRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += v / 60
		}
	}
	return total
}

// dayCountRule extracts every "Day <n>" header. The maximum day must not
// exceed the requested count and every day 1..N must be present.
type dayCountRule struct{}

func (dayCountRule) Code() string { return "missing_day_count" }

func (r dayCountRule) Check(req model.ValidationRequest) *model.ValidationIssue {
	seen := map[int]bool{}
	maxDay := 0
	for _, m := range dayRe.FindAllStringSubmatch(req.PlanText, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[n] = true
		if n > maxDay {
			maxDay = n
		}
	}
	if maxDay > req.ExpectedDays {
		return &model.ValidationIssue{
			Code:    r.Code(),
			Message: fmt.Sprintf("plan includes day %d but only %d days were requested", maxDay, req.ExpectedDays),
		}
	}
	if len(seen) != req.ExpectedDays {
		return &model.ValidationIssue{
			Code:    r.Code(),
			Message: fmt.Sprintf("plan covers %d distinct days, expected %d", len(seen), req.ExpectedDays),
		}
	}
	return nil
}

// resourceSpecificityRule flags vague pointers like "relevant chapters" that
// never name a chapter, section, or page number.
type resourceSpecificityRule struct{}

func (resourceSpecificityRule) Code() string { return "unspecified_resource" }

func (r resourceSpecificityRule) Check(req model.ValidationRequest) *model.ValidationIssue {
	lower := strings.ToLower(req.PlanText)
	if strings.Contains(lower, "relevant chapters") && !chapterNumRe.MatchString(req.PlanText) {
		return &model.ValidationIssue{
			Code:    r.Code(),
			Message: `plan says "relevant chapters" without naming a specific chapter number`,
		}
	}
	if strings.Contains(lower, "relevant sections") && !sectionNumRe.MatchString(req.PlanText) {
		return &model.ValidationIssue{
			Code:    r.Code(),
			Message: `plan says "relevant sections" without naming a specific section or page number`,
		}
	}
	return nil
}

// strategyCitationRule requires at least one named learning strategy in the
// form "using <name> technique|method|strategy".
type strategyCitationRule struct{}

func (strategyCitationRule) Code() string { return "no_strategy_cited" }

func (r strategyCitationRule) Check(req model.ValidationRequest) *model.ValidationIssue {
	if strategyRe.MatchString(req.PlanText) {
		return nil
	}
	return &model.ValidationIssue{
		Code:    r.Code(),
		Message: "plan never cites a named learning strategy (e.g. \"using the Pomodoro technique\")",
	}
}

type breakInclusionRule struct{}

func (breakInclusionRule) Code() string { return "no_breaks" }

func (r breakInclusionRule) Check(req model.ValidationRequest) *model.ValidationIssue {
	if breakRe.MatchString(req.PlanText) {
		return nil
	}
	return &model.ValidationIssue{
		Code:    r.Code(),
		Message: "plan schedules no breaks (expected e.g. \"5-minute break\")",
	}
}

type timeAllocationRule struct{}

func (timeAllocationRule) Code() string { return "no_time_allocations" }

func (r timeAllocationRule) Check(req model.ValidationRequest) *model.ValidationIssue {
	if hoursRe.MatchString(req.PlanText) || minutesRe.MatchString(req.PlanText) {
		return nil
	}
	return &model.ValidationIssue{
		Code:    r.Code(),
		Message: "plan contains no time allocations in hours or minutes",
	}
}
