package syncer

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/queue"
	"go.uber.org/zap"
)

// Applier applies one mutation to the durable store
type Applier func(ctx context.Context, m queue.Mutation) error

// Middleware wraps an Applier
type Middleware func(Applier) Applier

// chain applies mws so that mws[0] is the outermost
func chain(a Applier, mws ...Middleware) Applier {
	for i := len(mws) - 1; i >= 0; i-- {
		a = mws[i](a)
	}
	return a
}

// recoveryMiddleware turns a panicking durable store call into a task failure
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Applier) Applier {
		return func(ctx context.Context, m queue.Mutation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("durable store panicked",
						zap.String("mutation", m.String()),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
					err = ErrTaskPanic(m, r)
				}
			}()
			return next(ctx, m)
		}
	}
}

// timeoutMiddleware bounds each call with d
func timeoutMiddleware(d time.Duration) Middleware {
	return func(next Applier) Applier {
		return func(ctx context.Context, m queue.Mutation) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, m)
		}
	}
}
