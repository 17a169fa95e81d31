package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// JobStore is the single source of truth for job records: an in-memory map
// with a write-through durable mirror. Every Create/Update persists; a
// persistence failure is logged and the in-memory state stays authoritative
// for the current process lifetime.
//
// The map is mutated only by Create on the dispatching path and by the owning
// background worker's single terminal Update, so the mutex only arbitrates
// the map itself, not job ownership.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
	repo repository.JobRepository
	log  *zerolog.Logger
}

func NewJobStore(repo repository.JobRepository, logger *zerolog.Logger) *JobStore {
	sl := logger.With().Str("component", "JobStore").Logger()
	return &JobStore{
		jobs: map[string]*model.Job{},
		repo: repo,
		log:  &sl,
	}
}

// LoadAll rehydrates the in-memory map on startup so jobs created before a
// crash remain pollable. Jobs still marked processing come back processing;
// nothing owns them anymore, which is the accepted crash-orphan behavior.
func (s *JobStore) LoadAll(ctx context.Context) (int, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return len(jobs), nil
}

// Create inserts a new job. A colliding id is the only contested path and
// must be detected, never silently overwritten.
func (s *JobStore) Create(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	if _, exists := s.jobs[job.ID]; exists {
		s.mu.Unlock()
		return domain.ErrDuplicateJob
	}
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.persist(ctx, job)
	return nil
}

// Get checks memory first and falls back to the durable record, rehydrating
// the map on a disk hit.
func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if ok {
		cp := *job
		return &cp, nil
	}

	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()
	cp := *job
	return &cp, nil
}

// Complete applies the terminal success transition.
func (s *JobStore) Complete(ctx context.Context, id string, res model.JobResult) error {
	return s.finish(ctx, id, func(j *model.Job) error { return j.Complete(res) })
}

// Fail applies the terminal error transition.
func (s *JobStore) Fail(ctx context.Context, id string, msg string) error {
	return s.finish(ctx, id, func(j *model.Job) error { return j.Fail(msg) })
}

func (s *JobStore) finish(ctx context.Context, id string, apply func(*model.Job) error) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	if err := apply(job); err != nil {
		s.mu.Unlock()
		return err
	}
	cp := *job
	s.mu.Unlock()

	s.persist(ctx, &cp)
	return nil
}

// Sweep removes terminal jobs older than retention from memory and disk and
// returns how many were removed.
func (s *JobStore) Sweep(ctx context.Context, retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	var expired []string
	for id, j := range s.jobs {
		if j.Terminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	for _, id := range expired {
		if err := s.repo.Delete(ctx, id); err != nil {
			s.log.Error().Err(err).Str("job_id", id).Msg("failed to delete expired job record")
		}
	}
	return len(expired)
}

// CountOrphaned reports jobs stuck in processing longer than ceiling. They
// are surfaced for diagnostics only, never auto-resolved.
func (s *JobStore) CountOrphaned(ceiling time.Duration) int {
	cutoff := time.Now().Add(-ceiling)
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, j := range s.jobs {
		if j.Status == model.JobStatusProcessing && j.StartedAt.Before(cutoff) {
			n++
		}
	}
	return n
}

func (s *JobStore) persist(ctx context.Context, job *model.Job) {
	if err := s.repo.Put(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("job persistence failed; in-memory state remains authoritative")
	}
}
