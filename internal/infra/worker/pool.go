package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// Task is one unit of background work.
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of goroutines. Submission is
// non-blocking: a saturated queue is reported to the caller instead of
// applying back-pressure on the request path.
type Pool struct {
	wg    sync.WaitGroup
	tasks chan Task
	quit  chan struct{}
	n     int
	log   *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	sl := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{
		tasks: make(chan Task, workers*4),
		quit:  make(chan struct{}),
		n:     workers,
		log:   &sl,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.tasks:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil {
						p.log.Error().Err(err).Int("worker", id).Msg("task error")
					}
				}
			}
		}(i)
	}
}

func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return errors.New("worker queue full")
	}
}
