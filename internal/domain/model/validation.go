package model

// ValidationIssue is one violated plan requirement.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationRequest is the constraint set a candidate plan is checked
// against. Computed per call, never persisted.
type ValidationRequest struct {
	ExpectedDays        int
	ExpectedHoursPerDay float64
	PlanText            string
}

func (r ValidationRequest) ExpectedTotalHours() float64 {
	return float64(r.ExpectedDays) * r.ExpectedHoursPerDay
}

// ValidationReport aggregates rule outcomes. Pass is true iff Issues is empty.
type ValidationReport struct {
	Pass   bool              `json:"pass"`
	Issues []ValidationIssue `json:"issues"`
}

func (r ValidationReport) IssueMessages() []string {
	out := make([]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		out = append(out, is.Message)
	}
	return out
}
