package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"study-plan-assistant/internal/infra/metrics"
	"study-plan-assistant/internal/infra/storage"
)

// RetentionWorker periodically sweeps terminal jobs past their retention
// window and reports how many processing jobs look crash-orphaned.
type RetentionWorker struct {
	interval  time.Duration
	retention time.Duration
	orphanAge time.Duration
	store     *storage.JobStore
	log       *zerolog.Logger
}

func NewRetentionWorker(interval, retention, orphanAge time.Duration, store *storage.JobStore, logger *zerolog.Logger) *RetentionWorker {
	sl := logger.With().Str("component", "RetentionWorker").Logger()
	return &RetentionWorker{
		interval:  interval,
		retention: retention,
		orphanAge: orphanAge,
		store:     store,
		log:       &sl,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			n := w.store.Sweep(ctx, w.retention)
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired job records swept")
			}
			orphans := w.store.CountOrphaned(w.orphanAge)
			metrics.SetOrphanedJobs(orphans)
			if orphans > 0 {
				w.log.Warn().Int("count", orphans).Msg("jobs stuck in processing past orphan ceiling")
			}
		}
	}
}
