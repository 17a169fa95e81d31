package web

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/infra/metrics"
	"study-plan-assistant/internal/infra/storage"
	"study-plan-assistant/internal/infra/worker"
	"study-plan-assistant/internal/usecase"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// --- scripted text generator ---

type scriptedGen struct {
	mu        sync.Mutex
	responses []string
	calls     int
	Err       error
}

func (m *scriptedGen) Name() string { return "scripted" }

func (m *scriptedGen) Generate(context.Context, string, int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	out := m.responses[m.calls%len(m.responses)]
	m.calls++
	return out, nil
}

// newTestServer assembles the full stack over in-memory storage with an
// open (dev) session directory and no auth secret.
func newTestServer(t *testing.T, gen *scriptedGen) (*Server, *storage.JobStore) {
	t.Helper()
	logger := newTestLogger()

	store := storage.NewJobStore(storage.NewMemJobRepository(), logger)
	journal := metrics.NewJournal(t.TempDir(), logger)

	pool := worker.NewPool(2, logger)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() { cancel(); pool.Stop() })

	gens := []usecase.Generator{
		usecase.NewDirectGenerator(gen, usecase.NewPromptBudget(0), 1024, logger),
		usecase.NewTemplateGenerator(),
	}
	pipeline := usecase.NewPlanPipeline(gens, usecase.NewValidationEngine(), 200, logger)

	dispatcher := usecase.NewJobDispatcher(store, storage.NewOpenSessionDirectory(), pipeline, gen, pool, journal, usecase.DispatcherOpts{
		SyncWait: 500 * time.Millisecond,
	}, logger)
	poller := usecase.NewStatusPoller(store, logger)

	return NewServer(dispatcher, poller, journal, NewAuthManager(""), logger), store
}

// waitTerminal polls until the job finishes.
func waitTerminal(t *testing.T, store *storage.JobStore, id string) *model.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		if err == nil && job.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}
