package model

import "strings"

// Resource is one study material the student has attached to a session.
type Resource struct {
	ID   string
	Name string
	Type string // "book" | "video" | "article" | ...
}

// PlanContext carries everything the generation tiers need to know about the
// student and the request. It is assembled by the session directory
// collaborator, not persisted here.
type PlanContext struct {
	Subject         string
	StudyGoal       string
	Days            int
	HoursPerDay     float64
	LearningStyle   string
	DifficultTopics []string
	Resources       []Resource

	// UserQuery is the raw message that triggered generation.
	UserQuery string

	// Issues from a failed validation round, embedded into the next prompt
	// on a revision pass.
	Issues []string
}

func (c PlanContext) ResourceNames(max int) []string {
	out := make([]string, 0, max)
	for _, r := range c.Resources {
		if len(out) == max {
			break
		}
		if strings.TrimSpace(r.Name) != "" {
			out = append(out, r.Name)
		}
	}
	return out
}

// GenerationResult is the single typed shape every tier returns. Callers never
// probe an opaque provider object for content.
type GenerationResult struct {
	Content string
	Tier    string // "structured" | "direct" | "template"
}
