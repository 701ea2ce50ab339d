package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/timesheet/internal/metrics"
	"github.com/garnizeh/timesheet/internal/models"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	// outcomeTimeout bounds the write of a task's result, which must land
	// even after the pool context is canceled.
	outcomeTimeout = 5 * time.Second
)

type WorkerPool struct {
	repo         Store
	handlers     map[string]Handler
	logger       *slog.Logger
	metrics      *metrics.Metrics
	workerCount  int
	pollInterval time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// Option customizes a WorkerPool.
type Option func(*WorkerPool)

// WithPollInterval sets how long an idle worker sleeps before polling again.
func WithPollInterval(d time.Duration) Option {
	return func(p *WorkerPool) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithMetrics records task outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *WorkerPool) { p.metrics = m }
}

func NewWorkerPool(repo Store, handlers map[string]Handler, logger *slog.Logger, workerCount int, opts ...Option) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &WorkerPool{
		repo:         repo,
		handlers:     handlers,
		logger:       logger,
		workerCount:  workerCount,
		pollInterval: defaultPollInterval,
		stop:         make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start re-queues tasks a previous run left running, then launches the
// worker goroutines. The pool must be the only consumer of its database.
func (p *WorkerPool) Start(ctx context.Context) {
	if n, err := p.repo.RequeueRunning(ctx); err != nil {
		p.logger.Error("requeue running tasks", "err", err)
	} else if n > 0 {
		p.logger.Warn("requeued interrupted tasks", "count", n)
	}
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them. It is safe to call more
// than once.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Debug("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Debug("context canceled, worker exiting", "id", id)
			return
		default:
		}

		task, err := p.repo.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Error("claim task", "err", err)
			}
			p.sleep(ctx, time.Second)
			continue
		}
		if task == nil {
			p.sleep(ctx, p.pollInterval)
			continue
		}
		p.process(ctx, task)
	}
}

// sleep waits for d or until the pool is stopped.
func (p *WorkerPool) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.stop:
	case <-ctx.Done():
	}
}

func (p *WorkerPool) process(ctx context.Context, task *models.Task) {
	log := p.logger.With(slog.Int64("task_id", task.ID), slog.String("type", task.Type))

	h, ok := p.handlers[task.Type]
	if !ok {
		task.LastError = "no handler"
		octx, cancel := outcomeContext(ctx)
		defer cancel()
		p.fail(octx, log, task)
		return
	}

	err := p.run(ctx, h, task)

	// the outcome is written even when ctx is gone, or the row would stay
	// running forever
	octx, cancel := outcomeContext(ctx)
	defer cancel()

	if err == nil {
		task.Status = StatusDone
		task.LastError = ""
		task.NextTryAt = nil
		if upErr := p.repo.UpdateTask(octx, task); upErr != nil {
			log.Error("mark task done", "err", upErr)
		}
		p.metrics.TaskFinished(task.Type, StatusDone)
		log.Info("task done")
		return
	}

	if ctx.Err() != nil && !IsPermanent(err) {
		// interrupted by shutdown, not a real attempt
		task.Status = StatusRetry
		task.NextTryAt = nil
		if upErr := p.repo.UpdateTask(octx, task); upErr != nil {
			log.Error("requeue interrupted task", "err", upErr)
		}
		log.Warn("task interrupted, requeued", "err", err)
		return
	}

	task.Attempts++
	task.LastError = err.Error()
	if IsPermanent(err) || task.Attempts >= task.MaxAttempts {
		if !IsPermanent(err) {
			task.LastError = fmt.Sprintf("%s: %s", ErrMaxAttempts, task.LastError)
		}
		p.fail(octx, log, task)
		return
	}

	next := time.Now().Add(BackoffDuration(task.Attempts))
	task.NextTryAt = &next
	task.Status = StatusRetry
	if upErr := p.repo.UpdateTask(octx, task); upErr != nil {
		log.Error("update task for retry", "err", upErr)
	}
	p.metrics.TaskFinished(task.Type, StatusRetry)
	log.Warn("task failed, will retry", "err", err, "attempt", task.Attempts, "next_try_at", next)
}

// outcomeContext keeps ctx values but not its cancellation.
func outcomeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), outcomeTimeout)
}

// run calls the handler and turns a panic into a permanent error.
func (p *WorkerPool) run(ctx context.Context, h Handler, task *models.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return h(ctx, task)
}

func (p *WorkerPool) fail(ctx context.Context, log *slog.Logger, task *models.Task) {
	task.Status = StatusFailed
	if mvErr := p.repo.MoveToDeadLetter(ctx, task); mvErr != nil {
		log.Error("move to dead letter", "err", mvErr)
	}
	p.metrics.TaskFinished(task.Type, StatusFailed)
	log.Error("task failed", "err", task.LastError, "attempts", task.Attempts)
}

// Enqueue convenience helper that creates a task and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	if typ == "" {
		return 0, errors.New("enqueue: empty task type")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	t := &models.Task{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return p.repo.Enqueue(ctx, t)
}

// Get returns a task by id, nil when unknown.
func (p *WorkerPool) Get(ctx context.Context, id int64) (*models.Task, error) {
	return p.repo.GetTask(ctx, id)
}
