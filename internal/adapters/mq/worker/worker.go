// Package worker runs handlers over partitioned queues. Each partition has
// exactly one worker, so items sharing a key are handled one at a time in
// the order they were submitted.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/mq/queue"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
	"github.com/varvaraparamon/final-eval-bot/pkg/metrics"
)

// Handler processes one item. It must not block forever.
type Handler[T any] func(ctx context.Context, item T)

// Source is where a worker receives items from.
type Source[T any] interface {
	Dequeue() <-chan T
}

// InMemoryWorker consumes one source.
type InMemoryWorker[T any] struct {
	source Source[T]
	handle Handler[T]
	name   string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker over source.
func NewInMemoryWorker[T any](source Source[T], handle Handler[T], opts ...Option) *InMemoryWorker[T] {
	s := settings{name: "worker", logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &InMemoryWorker[T]{
		source:   source,
		handle:   handle,
		name:     s.name,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   s.logger.Named(s.name),
	}
}

// Run handles items until the source is closed and drained, ctx is done or
// Shutdown is called.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	defer close(w.done)

	items := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case item, ok := <-items:
			if !ok {
				return
			}
			w.process(ctx, item)
		}
	}
}

func (w *InMemoryWorker[T]) process(ctx context.Context, item T) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "handler panicked", logger.Any("panic", r))
		}
	}()
	w.handle(ctx, item)
}

// Shutdown stops the worker without draining its source.
func (w *InMemoryWorker[T]) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker[T]) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Done is closed when Run returns.
func (w *InMemoryWorker[T]) Done() <-chan struct{} {
	return w.done
}

// Pool owns one partitioned queue and one worker per partition.
type Pool[T any] struct {
	queues  *queue.Partitioned[T]
	workers []*InMemoryWorker[T]
	started atomic.Bool
	logger  logger.Logger
}

// NewPool creates workerCount workers, each with a queue of queueSize.
// A non-positive workerCount uses the number of CPUs.
func NewPool[T any](workerCount, queueSize int, handle Handler[T], opts ...Option) *Pool[T] {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	s := settings{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}

	p := &Pool[T]{
		queues:  queue.NewPartitioned[T](workerCount, queue.WithCapacity(queueSize)),
		workers: make([]*InMemoryWorker[T], workerCount),
		logger:  s.logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker[T](
			p.queues.Queue(i),
			handle,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(s.logger),
		)
	}
	return p
}

// Start runs every worker. Calling it twice has no effect.
func (p *Pool[T]) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Submit queues item on the worker that owns key. It fails with
// queue.ErrFull under backpressure and queue.ErrClosed after Shutdown.
func (p *Pool[T]) Submit(ctx context.Context, key int64, item T) error {
	return p.queues.Enqueue(ctx, key, item)
}

// Len is the number of queued items.
func (p *Pool[T]) Len() int { return p.queues.Len() }

// Cap is the total queue capacity.
func (p *Pool[T]) Cap() int { return p.queues.Cap() }

// Workers is the number of workers.
func (p *Pool[T]) Workers() int { return len(p.workers) }

// Shutdown stops accepting items and waits for workers to drain what is
// queued, or for ctx to end.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	_ = p.queues.Close()
	if !p.started.Load() {
		return nil
	}
	defer metrics.UpdateWorkerCount(0)

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			for _, rest := range p.workers[i:] {
				rest.stop()
			}
			return fmt.Errorf("pool shutdown: %w", ctx.Err())
		}
	}
	return nil
}
