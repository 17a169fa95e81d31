package storage

import (
	"context"
	"sync"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*MemJobRepository)(nil)

// MemJobRepository is the in-memory adapter used by tests and dev mode.
type MemJobRepository struct {
	mu   sync.Mutex
	byID map[string]model.Job
}

func NewMemJobRepository() *MemJobRepository {
	return &MemJobRepository{byID: map[string]model.Job{}}
}

func (r *MemJobRepository) Get(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.byID[id]; ok {
		cp := j
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MemJobRepository) Put(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[job.ID] = *job
	return nil
}

func (r *MemJobRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *MemJobRepository) List(_ context.Context) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Job, 0, len(r.byID))
	for _, j := range r.byID {
		cp := j
		out = append(out, &cp)
	}
	return out, nil
}
