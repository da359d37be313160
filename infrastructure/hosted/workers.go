package hosted

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
)

// MainThreadID identifies any context not running on a pool worker.
const MainThreadID entities.ThreadID = 1

// workerPool runs deferred tasks on a fixed set of goroutines fed by a
// bounded queue.
type workerPool struct {
	count   int
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	queue   chan entities.DeferredTask
	group   *errgroup.Group
	running bool
	pending int
	idle    []chan struct{}
}

func newWorkerPool(cfg config.Workers, logger *slog.Logger, metrics *Metrics) *workerPool {
	return &workerPool{
		count:   cfg.Count,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan entities.DeferredTask, cfg.QueueDepth),
	}
}

func (p *workerPool) start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.group = &errgroup.Group{}
	for i := 0; i < p.count; i++ {
		ctx := osl.WithThreadID(context.Background(), MainThreadID+1+entities.ThreadID(i))
		p.group.Go(func() error {
			for task := range p.queue {
				p.run(ctx, task)
			}
			return nil
		})
	}
	p.running = true
}

func (p *workerPool) run(ctx context.Context, task entities.DeferredTask) {
	outcome := "completed"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panicked"
			p.logger.ErrorContext(ctx, "deferred task panicked", "type", task.Type.String(), "panic", r)
		}
		p.metrics.DeferredTasks.WithLabelValues(task.Type.String(), outcome).Inc()
		p.done()
	}()
	task.Run(ctx, task.Context)
}

func (p *workerPool) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending--
	if p.pending == 0 {
		for _, ch := range p.idle {
			close(ch)
		}
		p.idle = nil
	}
}

func (p *workerPool) submit(task entities.DeferredTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return errors.Wrap("execute", entities.StatusError, fmt.Errorf("worker pool is not running"))
	}
	select {
	case p.queue <- task:
		p.pending++
		return nil
	default:
		p.metrics.DeferredTasks.WithLabelValues(task.Type.String(), "rejected").Inc()
		return errors.Wrap("execute", entities.StatusNoMemory, fmt.Errorf("deferred queue full"))
	}
}

// wait blocks until no task is queued or running.
func (p *workerPool) wait(ctx context.Context) error {
	p.mu.Lock()
	if p.pending == 0 {
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.idle = append(p.idle, ch)
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *workerPool) stop(ctx context.Context) error {
	waitErr := p.wait(ctx)

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return waitErr
	}
	p.running = false
	close(p.queue)
	group := p.group
	p.mu.Unlock()

	if waitErr != nil {
		return waitErr
	}
	return group.Wait()
}

// GetThreadID returns the worker's id inside deferred tasks and
// MainThreadID elsewhere, unless the caller marked ctx with its own id.
func (s *Services) GetThreadID(ctx context.Context) entities.ThreadID {
	if id, ok := osl.ThreadIDFrom(ctx); ok {
		return id
	}
	return MainThreadID
}

// Execute queues task. A full queue fails with ErrNoMemory.
func (s *Services) Execute(ctx context.Context, task entities.DeferredTask) error {
	if task.Run == nil {
		return errors.Wrap("execute", entities.StatusBadParameter, fmt.Errorf("task has no body"))
	}
	if err := s.workers.submit(task); err != nil {
		s.logger.WarnContext(ctx, "deferred task rejected", "type", task.Type.String(), "error", err)
		return err
	}
	return nil
}

func (s *Services) WaitEventsComplete(ctx context.Context) error {
	if err := s.workers.wait(ctx); err != nil {
		return s.waitFailed("wait_events_complete", err)
	}
	return nil
}
