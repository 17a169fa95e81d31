package storage

import (
	"context"

	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/domain/ports/repository"
)

var _ repository.SessionDirectory = (*OpenSessionDirectory)(nil)

// OpenSessionDirectory is the dev-mode directory: every session belongs to
// whoever asks and the plan profile is a neutral default. The generation
// pipeline fills in specifics parsed from the request itself.
type OpenSessionDirectory struct{}

func NewOpenSessionDirectory() *OpenSessionDirectory { return &OpenSessionDirectory{} }

func (OpenSessionDirectory) Authorize(context.Context, string, string) error { return nil }

func (OpenSessionDirectory) PlanContext(_ context.Context, _ string) (model.PlanContext, error) {
	return model.PlanContext{
		Subject:     "General studies",
		Days:        7,
		HoursPerDay: 2,
	}, nil
}
