package store

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmitter_OnEmitOff(t *testing.T) {
	e := NewEmitter(zap.NewNop(), "test")

	var got []string
	first := e.On("custom", func(ev Event) { got = append(got, "first:"+ev.Key) })
	e.On("custom", func(ev Event) { got = append(got, "second:"+ev.Name) })

	e.Emit("custom", Event{Key: "k"})
	if len(got) != 2 || got[0] != "first:k" || got[1] != "second:custom" {
		t.Fatalf("unexpected delivery order: %v", got)
	}

	e.Off("custom", first)
	got = nil
	e.Emit("custom", Event{Key: "k"})
	if len(got) != 1 || got[0] != "second:custom" {
		t.Fatalf("expected only the second listener, got %v", got)
	}
	if e.Listeners("custom") != 1 {
		t.Errorf("expected 1 listener, got %d", e.Listeners("custom"))
	}
}

func TestEmitter_OffUnknown(t *testing.T) {
	e := NewEmitter(nil, "test")
	e.Off("missing", 42)
	id := e.On("x", func(Event) {})
	e.Off("x", id+100)
	if e.Listeners("x") != 1 {
		t.Errorf("unknown id should not remove listeners")
	}
	e.Off("x", id)
	if e.Listeners("x") != 0 {
		t.Errorf("expected no listeners after Off")
	}
}

func TestEmitter_UnhandledErrorIsLogged(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	e := NewEmitter(zap.New(core), "durable")

	e.Emit(EventError, Event{Key: "a", Err: errors.New("boom")})
	entries := recorded.FilterMessage("unhandled store error event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["store"] != "durable" {
		t.Errorf("expected store name in log, got %v", entries[0].ContextMap())
	}

	e.Emit("other", Event{})
	if recorded.Len() != 1 {
		t.Errorf("non-error events without listeners must not be logged")
	}
}

func TestEmitter_ListenerPanicIsContained(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	e := NewEmitter(zap.New(core), "test")

	called := false
	e.On("x", func(Event) { panic("listener bug") })
	e.On("x", func(Event) { called = true })

	e.Emit("x", Event{})
	if !called {
		t.Error("listeners after a panicking one must still run")
	}
	if recorded.FilterMessage("event listener panicked").Len() != 1 {
		t.Error("expected the panic to be logged")
	}
}

func TestEmitter_Concurrent(t *testing.T) {
	e := NewEmitter(nil, "test")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := e.On("x", func(Event) {})
			e.Emit("x", Event{})
			e.Off("x", id)
		}()
	}
	wg.Wait()
	if e.Listeners("x") != 0 {
		t.Errorf("expected all listeners removed, got %d", e.Listeners("x"))
	}
}
