package store

import (
	"slices"
	"sync/atomic"

	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/routine"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

type registration struct {
	id ListenerID
	fn Listener
}

// Emitter is a concurrency-safe Notifier, adapters embed it
type Emitter struct {
	name      string
	log       logger.Logger
	nextID    atomic.Uint64
	listeners *xsync.MapOf[string, []registration]
}

// NewEmitter creates an emitter; name identifies the owning store in logs
func NewEmitter(log logger.Logger, name string) *Emitter {
	return &Emitter{
		name:      name,
		log:       logger.OrNop(log),
		listeners: xsync.NewMapOf[string, []registration](),
	}
}

func (e *Emitter) On(event string, fn Listener) ListenerID {
	id := ListenerID(e.nextID.Add(1))
	if fn == nil {
		return id
	}
	// slices are replaced, never mutated, so Emit can iterate without a lock
	e.listeners.Compute(event, func(old []registration, _ bool) ([]registration, bool) {
		next := slices.Clone(old)
		return append(next, registration{id: id, fn: fn}), false
	})
	return id
}

func (e *Emitter) Off(event string, id ListenerID) {
	e.listeners.Compute(event, func(old []registration, loaded bool) ([]registration, bool) {
		if !loaded {
			return nil, true
		}
		next := slices.DeleteFunc(slices.Clone(old), func(r registration) bool { return r.id == id })
		return next, len(next) == 0
	})
}

func (e *Emitter) Emit(event string, ev Event) {
	ev.Name = event
	regs, _ := e.listeners.Load(event)

	if len(regs) == 0 {
		if event == EventError {
			e.log.Error("unhandled store error event",
				zap.String("store", e.name),
				zap.String("key", ev.Key),
				zap.Error(ev.Err),
			)
		}
		return
	}

	for _, r := range regs {
		if err := routine.Safe(func() error { r.fn(ev); return nil }); err != nil {
			e.log.Error("event listener panicked",
				zap.String("store", e.name),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
}

// Listeners returns the number of listeners subscribed to event
func (e *Emitter) Listeners(event string) int {
	regs, _ := e.listeners.Load(event)
	return len(regs)
}
