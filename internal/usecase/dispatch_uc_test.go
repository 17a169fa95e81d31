//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/infra/metrics"
	"study-plan-assistant/internal/infra/storage"
	"study-plan-assistant/internal/infra/worker"
)

type dispatchFixture struct {
	dispatcher *JobDispatcher
	store      *storage.JobStore
	journal    *metrics.Journal
	sessions   *mockSessions
	cancel     context.CancelFunc
}

func newDispatchFixture(t *testing.T, gen *mockGen) *dispatchFixture {
	t.Helper()
	logger := newTestLogger()

	store := storage.NewJobStore(storage.NewMemJobRepository(), logger)
	journal := metrics.NewJournal(t.TempDir(), logger)
	sessions := &mockSessions{ctx: model.PlanContext{Subject: "Algebra", Days: 3, HoursPerDay: 2}}

	pool := worker.NewPool(2, logger)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() { cancel(); pool.Stop() })

	pipeline := newTestPipeline(gen)
	d := NewJobDispatcher(store, sessions, pipeline, gen, pool, journal, DispatcherOpts{
		SyncWait: 500 * time.Millisecond,
	}, logger)
	return &dispatchFixture{dispatcher: d, store: store, journal: journal, sessions: sessions, cancel: cancel}
}

func waitTerminal(t *testing.T, store *storage.JobStore, id string) *model.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestStartReturnsImmediatelyAndCompletes(t *testing.T) {
	gen := &mockGen{responses: []string{"hello, here is your answer"}}
	f := newDispatchFixture(t, gen)

	id, err := f.dispatcher.Start(context.Background(), "sess-1", "user-1", "what is calculus?", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatal("expected a job id")
	}

	job := waitTerminal(t, f.store, id)
	if job.Status != model.JobStatusComplete {
		t.Fatalf("expected complete, got %s (%s)", job.Status, job.Error)
	}
	if job.TaskType != model.TaskTypeChat {
		t.Fatalf("expected chat task, got %s", job.TaskType)
	}
	if job.Result == nil || job.Result.Content != "hello, here is your answer" {
		t.Fatal("result content missing")
	}
	if job.Result.MessageID == "" || job.Result.Role != "assistant" {
		t.Fatalf("malformed result envelope: %+v", job.Result)
	}
	if job.CompletedAt == nil || job.ProcessingSeconds < 0 {
		t.Fatal("timing fields not set")
	}
}

func TestStartUsesFallbackIDVerbatim(t *testing.T) {
	gen := &mockGen{responses: []string{"answer"}}
	f := newDispatchFixture(t, gen)

	const fallback = "client-chose-this-id-123"
	id, err := f.dispatcher.Start(context.Background(), "sess-1", "user-1", "hello", fallback)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id != fallback {
		t.Fatalf("fallback id must be used verbatim, got %q", id)
	}
	waitTerminal(t, f.store, fallback)
}

func TestStartRejectsUnsafeFallbackIDs(t *testing.T) {
	gen := &mockGen{responses: []string{"answer"}}
	f := newDispatchFixture(t, gen)

	// Job ids become file names; anything that could name a path is refused
	// before the job is registered.
	for _, id := range []string{"../../escaped", "a/b.json", "..", "id with spaces"} {
		_, err := f.dispatcher.Start(context.Background(), "sess-1", "user-1", "hello", id)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("fallback id %q: expected ErrInvalidArgument, got %v", id, err)
		}
	}
}

func TestStartDuplicateFallbackIDRejected(t *testing.T) {
	gen := &mockGen{responses: []string{"a", "b"}}
	f := newDispatchFixture(t, gen)

	if _, err := f.dispatcher.Start(context.Background(), "sess-1", "user-1", "hello", "dup-1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	_, err := f.dispatcher.Start(context.Background(), "sess-1", "user-1", "hello again", "dup-1")
	if !errors.Is(err, domain.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestProviderFailureStillReachesTerminalState(t *testing.T) {
	gen := &mockGen{Err: errors.New("provider down")}
	f := newDispatchFixture(t, gen)

	id, err := f.dispatcher.Start(context.Background(), "sess-1", "user-1", "tell me about rome", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	job := waitTerminal(t, f.store, id)
	if job.Status != model.JobStatusError {
		t.Fatalf("expected error state, got %s", job.Status)
	}
	if job.Error == "" {
		t.Fatal("error message must be recorded")
	}
}

func TestPlanRequestSurvivesProviderFailure(t *testing.T) {
	// Chat fails hard, but a plan request lands on the template tier and
	// must still complete.
	gen := &mockGen{Err: errors.New("provider down")}
	f := newDispatchFixture(t, gen)

	id, err := f.dispatcher.Start(context.Background(), "sess-1", "user-1", "create a study plan for algebra", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	job := waitTerminal(t, f.store, id)
	if job.Status != model.JobStatusComplete {
		t.Fatalf("plan requests must not fail outright, got %s (%s)", job.Status, job.Error)
	}
	if job.TaskType != model.TaskTypeStudyPlan {
		t.Fatalf("expected study_plan task, got %s", job.TaskType)
	}
}

func TestStartRejectsUnauthorizedSession(t *testing.T) {
	gen := &mockGen{responses: []string{"x"}}
	f := newDispatchFixture(t, gen)
	f.sessions.authErr = domain.ErrNotAuthorized

	_, err := f.dispatcher.Start(context.Background(), "sess-1", "intruder", "hello", "")
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestStartAndWaitReturnsInlineResult(t *testing.T) {
	gen := &mockGen{responses: []string{"fast answer"}}
	f := newDispatchFixture(t, gen)

	job, err := f.dispatcher.StartAndWait(context.Background(), "sess-1", "user-1", "quick question", "")
	if err != nil {
		t.Fatalf("start and wait: %v", err)
	}
	if job.Status != model.JobStatusComplete {
		t.Fatalf("expected inline completion, got %s", job.Status)
	}
	if job.Result == nil || job.Result.Content != "fast answer" {
		t.Fatal("inline result missing")
	}
}

func TestFinishedJobWritesJournalEntry(t *testing.T) {
	gen := &mockGen{responses: []string{"answer"}}
	f := newDispatchFixture(t, gen)

	id, err := f.dispatcher.Start(context.Background(), "sess-9", "user-1", "hello", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitTerminal(t, f.store, id)

	// The journal write happens on the worker goroutine right before the
	// terminal transition is visible, so give it a moment.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		stats, recent, err := f.journal.Summary("sess-9", 0)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if len(recent) == 1 {
			st := stats["chat"]
			if st.Count != 1 || st.SuccessRate != 100 {
				t.Fatalf("unexpected stats: %+v", st)
			}
			if recent[0].RequestID != id {
				t.Fatalf("journal request id mismatch: %q vs %q", recent[0].RequestID, id)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("journal entry never appeared")
}

func TestRateLimiterBlocksStart(t *testing.T) {
	gen := &mockGen{responses: []string{"a"}}
	logger := newTestLogger()
	store := storage.NewJobStore(storage.NewMemJobRepository(), logger)
	journal := metrics.NewJournal(t.TempDir(), logger)
	sessions := &mockSessions{}

	pool := worker.NewPool(1, logger)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() { cancel(); pool.Stop() })

	d := NewJobDispatcher(store, sessions, newTestPipeline(gen), gen, pool, journal, DispatcherOpts{
		Limiter: denyAllLimiter{},
		Limit:   1,
		Window:  time.Minute,
	}, logger)

	_, err := d.Start(context.Background(), "sess-1", "user-1", "hello", "")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}
