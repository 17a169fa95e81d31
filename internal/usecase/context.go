package usecase

import (
	"regexp"
	"strconv"

	"study-plan-assistant/internal/domain/model"
)

var (
	queryDaysRe  = regexp.MustCompile(`(?i)\b(\d+)\s*days?\b`)
	queryHoursRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\s*(?:per|a|each)\s*day\b`)
)

// applyQueryOverrides lets the request itself refine the stored profile:
// "make me a 5 day plan, 3 hours per day" wins over session defaults.
// Values outside sane bounds are ignored.
func applyQueryOverrides(pc model.PlanContext, message string) model.PlanContext {
	if m := queryDaysRe.FindStringSubmatch(message); m != nil {
		if d, err := strconv.Atoi(m[1]); err == nil && d >= 1 && d <= 60 {
			pc.Days = d
		}
	}
	if m := queryHoursRe.FindStringSubmatch(message); m != nil {
		if h, err := strconv.ParseFloat(m[1], 64); err == nil && h >= 0.5 && h <= 16 {
			pc.HoursPerDay = h
		}
	}
	if pc.Days <= 0 {
		pc.Days = 7
	}
	if pc.HoursPerDay <= 0 {
		pc.HoursPerDay = 2
	}
	return pc
}
