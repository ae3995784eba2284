package cron

import (
	"context"
	"errors"
	"time"

	"github.com/dailyyoga/cachedkv/logger"
	"go.uber.org/zap"
)

// Middleware decorates every run of a Task
type Middleware func(Task) Task

// applyMiddlewares wraps t so that mws[0] runs first
func applyMiddlewares(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// recoveryMiddleware turns a panicking run into an ErrPanic
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		name := next.Name()
		return TaskFunc(name, func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("task panicked", zap.String("task", name), zap.Any("panic", r), zap.Stack("stack"))
					err = ErrPanic(name, r)
				}
			}()
			return next.Run(ctx)
		})
	}
}

// loggingMiddleware records each run. Runs cut short by Stop are logged at
// info; successes at debug since drains fire every second.
func loggingMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		name := next.Name()
		return TaskFunc(name, func(ctx context.Context) error {
			start := time.Now()
			err := next.Run(ctx)
			fields := []zap.Field{zap.String("task", name), zap.Duration("duration", time.Since(start))}
			switch {
			case err == nil:
				log.Debug("task completed", fields...)
			case errors.Is(err, context.Canceled):
				log.Info("task cancelled", fields...)
			default:
				log.Error("task failed", append(fields, zap.Error(err))...)
			}
			return err
		})
	}
}
