package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.JobRepository = (*FileJobRepository)(nil)

// FileJobRepository keeps one JSON document per job id under dir. Writes go
// through a temp file + rename so a crash mid-write never leaves a torn
// record behind.
type FileJobRepository struct {
	dir string
}

func NewFileJobRepository(dir string) (*FileJobRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	return &FileJobRepository{dir: dir}, nil
}

// path maps a job id to its record file. Ids are validated at the model
// boundary, but the repository re-checks that the id is a plain file name so
// a crafted id can never address a path outside dir.
func (r *FileJobRepository) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || id != filepath.Base(id) {
		return "", fmt.Errorf("job id %q: %w", id, domain.ErrInvalidArgument)
	}
	return filepath.Join(r.dir, id+".json"), nil
}

func (r *FileJobRepository) Get(_ context.Context, id string) (*model.Job, error) {
	p, err := r.path(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read job %s: %w", id, err)
	}
	var job model.Job
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (r *FileJobRepository) Put(_ context.Context, job *model.Job) error {
	p, err := r.path(job.ID)
	if err != nil {
		return err
	}
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write job %s: %w", job.ID, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("commit job %s: %w", job.ID, err)
	}
	return nil
}

func (r *FileJobRepository) Delete(_ context.Context, id string) error {
	p, err := r.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

func (r *FileJobRepository) List(ctx context.Context) ([]*model.Job, error) {
	names, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]*model.Job, 0, len(names))
	for _, e := range names {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		job, err := r.Get(ctx, id)
		if err != nil {
			// A corrupt record should not block rehydration of the rest.
			continue
		}
		out = append(out, job)
	}
	return out, nil
}
