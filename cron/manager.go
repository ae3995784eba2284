package cron

import (
	"context"
	"sync"

	"github.com/dailyyoga/cachedkv/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var specParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// taskJob adapts a Task to cron.Job
type taskJob struct {
	ctx  context.Context
	task Task
}

func (j *taskJob) Run() {
	// errors are reported by the logging middleware
	_ = j.task.Run(j.ctx)
}

type scheduler struct {
	cron        *cron.Cron
	middlewares []Middleware
	logger      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

func newScheduler(log logger.Logger, mws ...Middleware) *scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &scheduler{
		// a run still in progress when the next one is due is skipped
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		middlewares: mws,
		logger:      log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *scheduler) Add(spec string, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}

	job := &taskJob{ctx: s.ctx, task: applyMiddlewares(task, s.middlewares...)}
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return ErrInvalidSpec(spec, err)
	}

	s.logger.Info("cron task added",
		zap.String("task", task.Name()),
		zap.String("spec", spec),
	)
	return nil
}

func (s *scheduler) Start() {
	s.cron.Start()
}

func (s *scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	// running tasks keep their context until they finish or ctx expires
	defer s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
