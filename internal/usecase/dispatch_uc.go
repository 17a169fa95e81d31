package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"study-plan-assistant/internal/domain"
	"study-plan-assistant/internal/domain/model"
	"study-plan-assistant/internal/domain/ports/adapter"
	"study-plan-assistant/internal/domain/ports/repository"
	"study-plan-assistant/internal/infra/logging"
	"study-plan-assistant/internal/infra/metrics"
	"study-plan-assistant/internal/infra/storage"
	"study-plan-assistant/internal/infra/worker"
)

// generationTimeout bounds a single background job regardless of how many
// provider calls the pipeline ends up making.
const generationTimeout = 2 * time.Minute

// StartLimiter throttles job starts per user. The redis adapter implements
// it; a nil limiter disables throttling.
type StartLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// JobDispatcher is the entry point for new work: it registers the job,
// acknowledges immediately with the job id, and hands the generation to a
// background worker that always drives the job to a terminal state.
type JobDispatcher struct {
	store    *storage.JobStore
	sessions repository.SessionDirectory
	pipeline *PlanPipeline
	chatAI   adapter.TextGenerator
	pool     *worker.Pool
	journal  *metrics.Journal

	limiter StartLimiter
	limit   int
	window  time.Duration

	syncWait time.Duration
	log      *zerolog.Logger
}

type DispatcherOpts struct {
	Limiter  StartLimiter
	Limit    int
	Window   time.Duration
	SyncWait time.Duration
}

func NewJobDispatcher(
	store *storage.JobStore,
	sessions repository.SessionDirectory,
	pipeline *PlanPipeline,
	chatAI adapter.TextGenerator,
	pool *worker.Pool,
	journal *metrics.Journal,
	opts DispatcherOpts,
	logger *zerolog.Logger,
) *JobDispatcher {
	if opts.SyncWait <= 0 {
		opts.SyncWait = 500 * time.Millisecond
	}
	sl := logger.With().Str("component", "JobDispatcher").Logger()
	return &JobDispatcher{
		store:    store,
		sessions: sessions,
		pipeline: pipeline,
		chatAI:   chatAI,
		pool:     pool,
		journal:  journal,
		limiter:  opts.Limiter,
		limit:    opts.Limit,
		window:   opts.Window,
		syncWait: opts.SyncWait,
		log:      &sl,
	}
}

// Start registers a job and returns its id without waiting for generation.
// A non-empty fallbackID supplied by the client is used verbatim as the job
// id so the client can poll even if it never receives this response. Ids
// become file names, so NewJob rejects anything outside its safe charset.
func (d *JobDispatcher) Start(ctx context.Context, sessionID, userID, message, fallbackID string) (string, error) {
	if err := d.sessions.Authorize(ctx, sessionID, userID); err != nil {
		return "", err
	}

	if d.limiter != nil {
		key := fmt.Sprintf("rate_limit:start:%s", userID)
		ok, err := d.limiter.Allow(ctx, key, d.limit, d.window)
		if err != nil {
			// The limiter is protective, not load-bearing.
			d.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			return "", domain.ErrRateLimited
		}
	}

	id := fallbackID
	if id == "" {
		id = uuid.NewString()
	}

	job, err := model.NewJob(id, sessionID, userID, message)
	if err != nil {
		return "", err
	}
	if err := d.store.Create(ctx, job); err != nil {
		return "", err
	}

	d.log.Info().
		Str("job_id", job.ID).
		Str("session_id", sessionID).
		Str("task_type", string(job.TaskType)).
		Msg("job accepted")

	run := func(context.Context) error {
		d.run(job.ID, sessionID, userID, message, job.TaskType)
		return nil
	}
	if err := d.pool.Submit(run); err != nil {
		// The job is already acknowledged; a saturated pool must not strand
		// it in processing forever.
		d.log.Warn().Err(err).Str("job_id", job.ID).Msg("pool saturated, running job on a dedicated goroutine")
		go run(context.Background())
	}
	return job.ID, nil
}

// StartAndWait is the synchronous convenience path: it starts the job and
// gives generation a short window to finish so fast answers come back inline.
// The returned job may still be processing; callers fall back to polling.
func (d *JobDispatcher) StartAndWait(ctx context.Context, sessionID, userID, message, fallbackID string) (*model.Job, error) {
	id, err := d.Start(ctx, sessionID, userID, message, fallbackID)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(d.syncWait)
	for {
		job, err := d.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Terminal() || time.Now().After(deadline) {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, nil
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// run executes the generation for one job. It owns the job's single terminal
// transition and must reach it on every path, including panics.
func (d *JobDispatcher) run(jobID, sessionID, userID, message string, taskType model.TaskType) {
	ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
	defer cancel()
	ctx = logging.WithJobID(ctx, jobID)
	ctx = logging.WithSessID(ctx, sessionID)

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("job_id", jobID).Interface("panic", r).Msg("job panicked")
			d.finish(ctx, jobID, sessionID, taskType, started, "", fmt.Sprintf("internal error: %v", r))
		}
	}()

	content, err := d.generate(ctx, sessionID, message, taskType)
	if err != nil {
		d.finish(ctx, jobID, sessionID, taskType, started, "", err.Error())
		return
	}
	d.finish(ctx, jobID, sessionID, taskType, started, content, "")
}

func (d *JobDispatcher) generate(ctx context.Context, sessionID, message string, taskType model.TaskType) (string, error) {
	switch taskType {
	case model.TaskTypeStudyPlan, model.TaskTypePlanRevision:
		pc, err := d.sessions.PlanContext(ctx, sessionID)
		if err != nil {
			return "", fmt.Errorf("load plan context: %w", err)
		}
		pc.UserQuery = message
		pc = applyQueryOverrides(pc, message)
		res, report := d.pipeline.GeneratePlan(ctx, pc)
		if !report.Pass {
			d.log.Warn().
				Str("session_id", sessionID).
				Str("tier", res.Tier).
				Int("open_issues", len(report.Issues)).
				Msg("plan delivered with unresolved validation issues")
		}
		return res.Content, nil
	default:
		if d.chatAI == nil {
			return "", domain.ErrNoProvider
		}
		out, err := d.chatAI.Generate(ctx, chatPrompt(message), 0)
		if err != nil {
			return "", fmt.Errorf("chat generation: %w", err)
		}
		return out, nil
	}
}

// finish applies the terminal transition, records the journal line, and
// updates the counters. errMsg == "" means success.
func (d *JobDispatcher) finish(ctx context.Context, jobID, sessionID string, taskType model.TaskType, started time.Time, content, errMsg string) {
	elapsed := time.Since(started).Seconds()
	success := errMsg == ""

	if success {
		res := model.JobResult{
			MessageID: newMessageID(),
			Role:      "assistant",
			Content:   content,
			Timestamp: time.Now(),
		}
		if err := d.store.Complete(ctx, jobID, res); err != nil {
			d.log.Error().Err(err).Str("job_id", jobID).Msg("failed to complete job")
		}
	} else {
		if err := d.store.Fail(ctx, jobID, errMsg); err != nil {
			d.log.Error().Err(err).Str("job_id", jobID).Msg("failed to fail job")
		}
	}

	status := "complete"
	if !success {
		status = "error"
	}
	metrics.ObserveJobFinished(status, string(taskType), elapsed)
	d.journal.Record(metrics.JournalEntry{
		RequestID:      jobID,
		SessionID:      sessionID,
		TaskType:       string(taskType),
		ProcessingTime: elapsed,
		Success:        success,
		ErrorMessage:   errMsg,
	})
}

func newMessageID() string {
	return ulid.Make().String()
}
