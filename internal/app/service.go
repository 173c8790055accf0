// Package service wires the conversation engine to the session store, the
// partitioned worker pool and the delivery outbox.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/delivery"
	"github.com/varvaraparamon/final-eval-bot/internal/adapters/mq/queue"
	"github.com/varvaraparamon/final-eval-bot/internal/adapters/mq/worker"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/conversation"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/dedupe"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/session"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
	"github.com/varvaraparamon/final-eval-bot/pkg/metrics"
)

// Result is what one processed update produced.
type Result struct {
	State    session.Tag
	Messages []delivery.Message
	Rejected bool
}

// job is one update waiting for its participant's worker.
type job struct {
	update model.Update
	event  conversation.Event
	// abandoned is closed when the submitter stopped waiting.
	abandoned <-chan struct{}
	reply     chan<- reply
}

type reply struct {
	result Result
	err    error
}

// evaluationCounter is implemented by repositories that can report how
// many evaluations they hold.
type evaluationCounter interface {
	CountEvaluations(ctx context.Context) (int64, error)
}

// Service implements the API dependencies of the evaluation bot.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	verifier    conversation.Verifier
	catalog     conversation.Catalog
	evaluations conversation.Evaluations

	// Core components
	engine  *conversation.Engine
	store   *session.MemoryStore
	deduper dedupe.Deduper
	pool    *worker.Pool[job]

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	shardCount      int
	pageSize        int
	metricsInterval time.Duration

	started bool
	logger  logger.Logger
}

// New constructs a Service over the three storage collaborators.
func New(v conversation.Verifier, c conversation.Catalog, e conversation.Evaluations, opts ...Option) *Service {
	s := &Service{
		verifier:        v,
		catalog:         c,
		evaluations:     e,
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       256,
		dedupeSize:      50_000,
		shardCount:      32,
		pageSize:        10,
		metricsInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the store, engine and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting evaluation service...")

	s.store = session.NewMemoryStore(ctx,
		session.WithShardCount(s.shardCount),
		session.WithMetricsUpdateInterval(s.metricsInterval),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.engine = conversation.NewEngine(s.verifier, s.catalog, s.evaluations,
		conversation.WithPageSize(s.pageSize),
		conversation.WithLogger(s.logger.Named("engine")),
	)
	s.pool = worker.NewPool[job](s.workerCount, s.queueSize, s.process,
		worker.WithLogger(s.logger))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("pageSize", s.pageSize),
	)
	return nil
}

// Stop drains the worker pool and releases the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping evaluation service...")

	err := s.pool.Shutdown(ctx)
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "evaluation service stopped")
	return err
}

// SeenAndRecord reports whether the update id was already delivered and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordUpdateDuplicate()
	}
	return seen
}

// Unrecord forgets an update id so a redelivery is processed.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// Submit runs one update through the participant's worker and waits for
// the result. Updates of one participant are applied in submission order.
// If ctx ends first the error is ctx.Err(); an update whose processing had
// not started by then is dropped and its id forgotten.
func (s *Service) Submit(ctx context.Context, u model.Update) (Result, error) {
	s.mu.RLock()
	started, pool := s.started, s.pool
	s.mu.RUnlock()
	if !started {
		return Result{}, ErrNotStarted
	}
	if u.ParticipantID == 0 {
		return Result{}, session.ErrParticipantRequired
	}

	ev, err := conversation.Decode(u)
	if err != nil {
		return Result{}, err
	}

	replies := make(chan reply, 1)
	j := job{update: u, event: ev, abandoned: ctx.Done(), reply: replies}
	if err := pool.Submit(ctx, u.ParticipantID, j); err != nil {
		switch {
		case errors.Is(err, queue.ErrFull):
			return Result{}, fmt.Errorf("submit %s: %w", u.ID, ErrBackpressure)
		case errors.Is(err, queue.ErrClosed):
			return Result{}, fmt.Errorf("submit %s: %w", u.ID, ErrStopped)
		default:
			return Result{}, fmt.Errorf("submit %s: %w", u.ID, err)
		}
	}

	select {
	case r := <-replies:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// process runs on the participant's worker.
func (s *Service) process(ctx context.Context, j job) {
	select {
	case <-j.abandoned:
		s.deduper.Unrecord(ctx, j.update.ID)
		metrics.RecordUpdateRejected("abandoned")
		return
	default:
	}

	start := time.Now()
	pid := j.update.ParticipantID

	var (
		from    session.Tag
		outcome conversation.Outcome
	)
	sess, err := s.store.Update(ctx, pid, func(cur session.Session) (session.Session, error) {
		from = cur.Tag()
		outcome = s.engine.Handle(ctx, cur, j.event)
		return outcome.Session, nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("service", "session_update")
		j.reply <- reply{err: fmt.Errorf("update session: %w", err)}
		return
	}
	metrics.RecordTransition(string(from), string(sess.Tag()))

	outbox := delivery.NewOutbox()
	if err := delivery.Apply(ctx, outbox, pid, outcome.Effects, s.logger); err != nil {
		metrics.RecordErrorByComponent("service", "delivery")
		j.reply <- reply{err: err}
		return
	}

	metrics.RecordProcessingLatency(float64(time.Since(start).Milliseconds()))
	j.reply <- reply{result: Result{
		State:    sess.Tag(),
		Messages: outbox.Messages(),
		Rejected: outcome.Rejected,
	}}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"pageSize":    s.pageSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["queueLength"] = s.pool.Len()
	stats["sessions"] = s.store.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	if c, ok := s.evaluations.(evaluationCounter); ok {
		if n, err := c.CountEvaluations(ctx); err == nil {
			stats["evaluationsSaved"] = n
		}
	}

	metrics.UpdateQueueSize(s.pool.Len())
	metrics.UpdateActiveSessions(s.store.Len(ctx))
	return stats
}

// Size returns the current number of remembered update ids.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
