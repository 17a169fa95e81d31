package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/domain/ports/repository"
)

var _ repository.SessionDirectory = (*SessionGuard)(nil)

// SessionGuard resolves session ownership and the student's plan profile from
// the sessions database. It is read-only: session writes belong to the
// session service, not this one.
type SessionGuard struct {
	pool *pgxpool.Pool
}

func NewSessionGuard(pool *pgxpool.Pool) *SessionGuard {
	return &SessionGuard{pool: pool}
}

func (g *SessionGuard) Authorize(ctx context.Context, sessionID, userID string) error {
	const q = `SELECT user_id FROM sessions WHERE id = $1;`
	var owner string
	if err := g.pool.QueryRow(ctx, q, sessionID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("session lookup: %w", err)
	}
	if owner != userID {
		return domain.ErrNotAuthorized
	}
	return nil
}

func (g *SessionGuard) PlanContext(ctx context.Context, sessionID string) (model.PlanContext, error) {
	const q = `
SELECT subject, study_goal, days, hours_per_day, learning_style, difficult_topics
FROM sessions WHERE id = $1;`

	var pc model.PlanContext
	var topics []string
	err := g.pool.QueryRow(ctx, q, sessionID).Scan(
		&pc.Subject, &pc.StudyGoal, &pc.Days, &pc.HoursPerDay, &pc.LearningStyle, &topics,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PlanContext{}, domain.ErrNotFound
		}
		return model.PlanContext{}, fmt.Errorf("plan context: %w", err)
	}
	pc.DifficultTopics = topics

	const qRes = `SELECT id, name, type FROM session_resources WHERE session_id = $1 ORDER BY created_at;`
	rows, err := g.pool.Query(ctx, qRes, sessionID)
	if err != nil {
		return model.PlanContext{}, fmt.Errorf("session resources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r model.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Type); err != nil {
			return model.PlanContext{}, fmt.Errorf("scan resource: %w", err)
		}
		pc.Resources = append(pc.Resources, r)
	}
	if err := rows.Err(); err != nil {
		return model.PlanContext{}, fmt.Errorf("session resources: %w", err)
	}
	return pc, nil
}
