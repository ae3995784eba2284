package cron

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"* * * * * *", false},
		{"*/5 * * * * *", false},
		{"@every 1s", false},
		{"* * * * *", true},
		{"not a spec", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if err := ParseSpec(tt.spec); (err != nil) != tt.wantErr {
				t.Errorf("ParseSpec(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestScheduler_RunsTask(t *testing.T) {
	s := New(nil)
	var runs atomic.Int32
	if err := s.Add("* * * * * *", TaskFunc("tick", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if runs.Load() == 0 {
		t.Fatal("expected task to run at least once")
	}

	after := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	if runs.Load() != after {
		t.Error("task ran after Stop")
	}
}

func TestScheduler_AddErrors(t *testing.T) {
	s := New(nil)
	if err := s.Add("* * * * * *", nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("expected ErrNilTask, got %v", err)
	}
	if err := s.Add("bogus", TaskFunc("x", func(context.Context) error { return nil })); err == nil {
		t.Error("expected invalid spec error")
	}
	s.Stop(context.Background())
	if err := s.Add("* * * * * *", TaskFunc("x", func(context.Context) error { return nil })); !errors.Is(err, ErrSchedulerStopped) {
		t.Errorf("expected ErrSchedulerStopped, got %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	log, logs := newObservedLogger()
	task := applyMiddlewares(TaskFunc("boom", func(context.Context) error {
		panic("kaboom")
	}), recoveryMiddleware(log), loggingMiddleware(log))

	err := task.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("expected panic converted to error, got %v", err)
	}
	if logs.FilterMessage("task panicked").Len() != 1 {
		t.Error("expected panic to be logged")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	log, logs := newObservedLogger()
	failing := applyMiddlewares(TaskFunc("fail", func(context.Context) error {
		return errors.New("nope")
	}), loggingMiddleware(log))
	ok := applyMiddlewares(TaskFunc("ok", func(context.Context) error { return nil }), loggingMiddleware(log))

	failing.Run(context.Background())
	ok.Run(context.Background())

	if logs.FilterMessage("task failed").Len() != 1 {
		t.Error("expected failure log")
	}
	if logs.FilterMessage("task completed").Len() != 1 {
		t.Error("expected completion log")
	}
}

func TestLoggingMiddleware_Cancelled(t *testing.T) {
	log, logs := newObservedLogger()
	task := applyMiddlewares(TaskFunc("stopping", func(ctx context.Context) error {
		return ctx.Err()
	}), loggingMiddleware(log))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := task.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if logs.FilterMessage("task cancelled").Len() != 1 {
		t.Error("expected cancellation to be logged")
	}
	if logs.FilterMessage("task failed").Len() != 0 {
		t.Error("cancellation should not be logged as a failure")
	}
}

func TestApplyMiddlewares_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Task) Task {
			return TaskFunc(next.Name(), func(ctx context.Context) error {
				order = append(order, name)
				return next.Run(ctx)
			})
		}
	}
	task := applyMiddlewares(TaskFunc("t", func(context.Context) error {
		order = append(order, "task")
		return nil
	}), mw("outer"), mw("inner"))
	task.Run(context.Background())

	if strings.Join(order, ",") != "outer,inner,task" {
		t.Errorf("unexpected order: %v", order)
	}
}
