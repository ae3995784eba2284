// Package syncer replays queued mutations against the durable store.
//
// A drain pass empties the queue in FIFO order, one mutation at a time. At
// most one pass runs at any moment: a trigger that fires while a pass is in
// progress is skipped. A mutation that still fails after its attempts is
// reported once through the durable store's "error" event, handed to the
// dead-letter sink and dropped; it is never requeued.
package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cachedkv/cron"
	"github.com/dailyyoga/cachedkv/deadletter"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/queue"
	"github.com/dailyyoga/cachedkv/routine"
	"github.com/dailyyoga/cachedkv/store"
	"go.uber.org/zap"
)

// flushPollInterval is how often Stop retries the final pass while a manual pass holds the engine
const flushPollInterval = 10 * time.Millisecond

// Engine drains a mutation queue into a durable store
type Engine struct {
	name         string
	interval     time.Duration
	schedule     string
	taskTimeout  time.Duration
	maxAttempts  int
	retryBackoff time.Duration

	logger  logger.Logger
	durable store.Store
	queue   *queue.Queue
	sink    deadletter.Sink
	apply   Applier
	metrics *engineMetrics

	busy    atomic.Bool
	started atomic.Bool
	stopped atomic.Bool

	runner    routine.Runner
	scheduler cron.Scheduler
	// loopCancel stops the trigger, workCancel aborts in-flight background passes
	loopCancel context.CancelFunc
	workCtx    context.Context
	workCancel context.CancelFunc
	stopOnce   sync.Once
	stopErr    error
}

// Option configures optional engine collaborators
type Option func(*Engine)

// WithSink sends mutations that exhausted their attempts to s
func WithSink(s deadletter.Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithMiddleware wraps every durable store call, inside recovery and timeout
func WithMiddleware(mws ...Middleware) Option {
	return func(e *Engine) {
		e.apply = chain(e.apply, mws...)
	}
}

// New creates an engine. The engine does nothing until Start is called, but
// Drain can be used right away.
func New(log logger.Logger, durable store.Store, q *queue.Queue, cfg *Config, opts ...Option) (*Engine, error) {
	if durable == nil {
		return nil, ErrNilStore
	}
	if q == nil {
		return nil, ErrNilQueue
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = logger.OrNop(log)
	workCtx, workCancel := context.WithCancel(context.Background())
	e := &Engine{
		name:         cfg.Name,
		interval:     cfg.Interval,
		schedule:     cfg.Schedule,
		taskTimeout:  cfg.TaskTimeout,
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		logger:       log,
		durable:      durable,
		queue:        q,
		metrics:      newEngineMetrics(cfg.Name, q),
		runner:       routine.New(log),
		workCtx:      workCtx,
		workCancel:   workCancel,
		apply: func(ctx context.Context, m queue.Mutation) error {
			return m.Apply(ctx, durable)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.apply = chain(e.apply, recoveryMiddleware(log), timeoutMiddleware(cfg.TaskTimeout))
	return e, nil
}

// Enqueue appends m to the queue; it is applied by a later pass
func (e *Engine) Enqueue(m queue.Mutation) error {
	if e.stopped.Load() {
		return ErrStopped
	}
	if err := e.queue.Enqueue(m); err != nil {
		return err
	}
	e.metrics.enqueued.Inc()
	return nil
}

// Busy reports whether a drain pass is running
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// Pending returns the number of queued mutations
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Drain runs one pass and returns the number of mutations applied. It
// returns 0 right away when another pass is running. Mutations enqueued
// during the pass are included.
func (e *Engine) Drain(ctx context.Context) int {
	n, _ := e.drain(ctx)
	return n
}

func (e *Engine) drain(ctx context.Context) (applied int, ran bool) {
	if !e.busy.CompareAndSwap(false, true) {
		e.metrics.skipped.Inc()
		return 0, false
	}
	defer e.busy.Store(false)

	start := time.Now()
	failed := 0
	for ctx.Err() == nil {
		m, ok := e.queue.TryDequeue(ctx)
		if !ok {
			break
		}
		attempts, err := e.execute(ctx, m)
		if err != nil {
			failed++
			e.fail(ctx, m, attempts, err)
			continue
		}
		applied++
		e.metrics.applied.Inc()
	}

	e.metrics.passes.Inc()
	e.metrics.duration.UpdateDuration(start)
	if applied > 0 || failed > 0 {
		e.logger.Debug("drain pass finished",
			zap.String("engine", e.name),
			zap.Int("applied", applied),
			zap.Int("failed", failed),
			zap.Int("pending", e.queue.Len()),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return applied, true
}

// execute applies m, retrying transient failures with exponential backoff
func (e *Engine) execute(ctx context.Context, m queue.Mutation) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := backoff(e.retryBackoff, attempt)
			e.logger.Warn("retrying durable mutation after backoff",
				zap.String("engine", e.name),
				zap.String("mutation", m.String()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, wait); err != nil {
				return attempt - 1, lastErr
			}
			e.metrics.retried.Inc()
		}

		err := e.apply(ctx, m)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return attempt, err
		}
	}
	return e.maxAttempts, lastErr
}

// fail reports a dropped mutation exactly once
func (e *Engine) fail(ctx context.Context, m queue.Mutation, attempts int, err error) {
	e.metrics.failed.Inc()
	rerr := &ReplayError{Mutation: m, Attempts: attempts, Err: err}

	e.logger.Error("durable mutation failed",
		zap.String("engine", e.name),
		zap.String("id", m.ID),
		zap.String("op", string(m.Op)),
		zap.String("key", m.Key),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	e.durable.Emit(store.EventError, store.Event{Key: m.Key, Err: rerr, Data: m})

	if e.sink == nil {
		return
	}
	// the letter is the last copy of the write, do not lose it to a cancelled pass
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.taskTimeout)
	defer cancel()
	if perr := e.sink.Put(putCtx, deadletter.NewLetter(m, err, attempts)); perr != nil {
		e.logger.Error("dead letter sink rejected mutation",
			zap.String("engine", e.name),
			zap.String("id", m.ID),
			zap.Error(perr),
		)
		return
	}
	e.metrics.deadLettered.Inc()
}

// Start begins draining on the configured interval or schedule
func (e *Engine) Start() error {
	if e.stopped.Load() {
		return ErrStopped
	}
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if e.schedule != "" {
		e.scheduler = cron.New(e.logger)
		task := cron.TaskFunc(e.name+"-drain", func(context.Context) error {
			e.Drain(e.workCtx)
			return nil
		})
		if err := e.scheduler.Add(e.schedule, task); err != nil {
			e.started.Store(false)
			return err
		}
		e.scheduler.Start()
		e.logger.Info("sync engine started",
			zap.String("engine", e.name),
			zap.String("schedule", e.schedule),
		)
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	e.loopCancel = cancel
	e.runner.GoNamed(loopCtx, e.name+"-sync", func(ctx context.Context) {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.Drain(e.workCtx)
			case <-ctx.Done():
				return
			}
		}
	})
	e.logger.Info("sync engine started",
		zap.String("engine", e.name),
		zap.Duration("interval", e.interval),
	)
	return nil
}

// Stop stops the trigger, closes the queue and applies what is left. ctx
// bounds the wait for a running pass and the final flush. Stop is idempotent;
// later calls return the first result.
func (e *Engine) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() {
		e.stopped.Store(true)
		e.stopErr = e.stop(ctx)
	})
	return e.stopErr
}

func (e *Engine) stop(ctx context.Context) error {
	defer e.workCancel()

	if e.loopCancel != nil {
		e.loopCancel()
	}
	if e.scheduler != nil {
		if err := e.scheduler.Stop(ctx); err != nil {
			return err
		}
	}
	done := make(chan struct{})
	go func() {
		e.runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.queue.Close()
	for e.queue.Len() > 0 {
		if _, ran := e.drain(ctx); !ran {
			// a manual pass is running, it will take what it can
			if err := sleep(ctx, flushPollInterval); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	if remaining := e.queue.Len(); remaining > 0 {
		e.logger.Warn("sync engine stopped with pending mutations",
			zap.String("engine", e.name),
			zap.Int("pending", remaining),
		)
		return ctx.Err()
	}
	e.logger.Info("sync engine stopped", zap.String("engine", e.name))
	return nil
}
