package repository

import (
	"context"

	"study-plan-assistant/internal/domain/model"
)

// JobRepository is the durable record of jobs, one record per id. The
// disk-backed implementation is one interchangeable adapter; tests use an
// in-memory one.
type JobRepository interface {
	Get(ctx context.Context, id string) (*model.Job, error)
	Put(ctx context.Context, job *model.Job) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.Job, error)
}
