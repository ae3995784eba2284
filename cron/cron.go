// Package cron runs named tasks on cron schedules with seconds precision.
package cron

import (
	"context"

	"github.com/dailyyoga/cachedkv/logger"
)

// Task is a unit of scheduled work
type Task interface {
	// Name identifies the task in logs
	Name() string
	// Run executes the task, the context is cancelled when the scheduler stops
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to a Task
func TaskFunc(name string, fn func(ctx context.Context) error) Task {
	return funcTask{name: name, fn: fn}
}

type funcTask struct {
	name string
	fn   func(ctx context.Context) error
}

func (t funcTask) Name() string                  { return t.name }
func (t funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

// Scheduler runs tasks on cron specs
type Scheduler interface {
	// Add registers task under spec, the spec has six fields (seconds first)
	// and also accepts descriptors such as "@every 1s"
	Add(spec string, task Task) error
	// Start begins scheduling
	Start()
	// Stop stops scheduling and waits for running tasks until ctx is done
	Stop(ctx context.Context) error
}

// New creates a scheduler. Recovery and logging middlewares are always applied
// first, mws wrap inside them.
func New(log logger.Logger, mws ...Middleware) Scheduler {
	log = logger.OrNop(log)
	defaultMws := []Middleware{
		recoveryMiddleware(log),
		loggingMiddleware(log),
	}
	return newScheduler(log, append(defaultMws, mws...)...)
}

// ParseSpec validates a six-field spec without scheduling anything
func ParseSpec(spec string) error {
	if _, err := specParser.Parse(spec); err != nil {
		return ErrInvalidSpec(spec, err)
	}
	return nil
}
