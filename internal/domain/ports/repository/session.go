package repository

import (
	"context"

	"study-plan-assistant/internal/domain/model"
)

// SessionDirectory is the boundary to the session/resource CRUD layer, which
// lives outside this subsystem. The dispatcher only needs an ownership check
// and the plan context for a session.
type SessionDirectory interface {
	// Authorize returns domain.ErrNotFound for an unknown session and
	// domain.ErrNotAuthorized when the user does not own it.
	Authorize(ctx context.Context, sessionID, userID string) error

	// PlanContext assembles the generation inputs recorded against the
	// session (subject, goal, timeframe, resources).
	PlanContext(ctx context.Context, sessionID string) (model.PlanContext, error)
}
