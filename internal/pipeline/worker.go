package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"flagbot/internal/models"
)

// ErrWorkerStopped is returned for submissions after Stop.
var ErrWorkerStopped = errors.New("pipeline worker stopped")

// Runner scores a batch of messages.
type Runner interface {
	Run(ctx context.Context, msgs []models.RawMessage) (*Result, error)
}

type job struct {
	ctx  context.Context
	msgs []models.RawMessage
	done chan jobResult
}

type jobResult struct {
	res *Result
	err error
}

// Worker runs batches one at a time on its own goroutine so model fitting never
// competes with request handlers.
type Worker struct {
	runner Runner
	jobs   chan job
	quit   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	logger *zap.Logger
}

// NewWorker starts the worker goroutine. queue bounds pending submissions.
func NewWorker(runner Runner, queue int, logger *zap.Logger) *Worker {
	w := &Worker{
		runner: runner,
		jobs:   make(chan job, queue),
		quit:   make(chan struct{}),
		logger: logger,
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			if err := j.ctx.Err(); err != nil {
				j.done <- jobResult{err: err}
				continue
			}
			res, err := w.runner.Run(j.ctx, j.msgs)
			j.done <- jobResult{res: res, err: err}
		}
	}
}

// Submit queues msgs and waits for the result or for ctx to end.
func (w *Worker) Submit(ctx context.Context, msgs []models.RawMessage) (*Result, error) {
	j := job{ctx: ctx, msgs: msgs, done: make(chan jobResult, 1)}

	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}

	select {
	case w.jobs <- j:
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-j.done:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop ends the worker after the current run and waits for it to exit.
func (w *Worker) Stop() {
	w.once.Do(func() {
		close(w.quit)
		w.wg.Wait()
		w.logger.Info("Pipeline worker stopped.")
	})
}
