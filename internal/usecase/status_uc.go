package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/infra/storage"
)

// StatusPoller serves job reads. Reads are idempotent and never mutate job
// state; polling a processing job any number of times yields the same record
// until the background worker finishes it.
type StatusPoller struct {
	store *storage.JobStore
	log   *zerolog.Logger
}

func NewStatusPoller(store *storage.JobStore, logger *zerolog.Logger) *StatusPoller {
	sl := logger.With().Str("component", "StatusPoller").Logger()
	return &StatusPoller{store: store, log: &sl}
}

// Status returns the job for id. A job belonging to a different session or
// user is reported as not found rather than leaking its existence.
func (p *StatusPoller) Status(ctx context.Context, sessionID, userID, jobID string) (*model.Job, error) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.SessionID != sessionID || job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}
