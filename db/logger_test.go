package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]glogger.LogLevel{
		"silent":  glogger.Silent,
		"ERROR":   glogger.Error,
		"warn":    glogger.Warn,
		"info":    glogger.Info,
		"unknown": glogger.Warn,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := &gormLogger{logger: zap.New(core), level: glogger.Warn, slowThreshold: 10 * time.Millisecond}
	fc := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	if recorded.Len() != 0 {
		t.Fatalf("record not found should not be logged, got %d entries", recorded.Len())
	}

	l.Trace(ctx, time.Now(), fc, errors.New("deadlock"))
	if n := recorded.FilterMessage("sql error").Len(); n != 1 {
		t.Errorf("expected 1 sql error entry, got %d", n)
	}

	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	if n := recorded.FilterMessage("slow sql").Len(); n != 1 {
		t.Errorf("expected 1 slow sql entry, got %d", n)
	}

	l.Trace(ctx, time.Now(), fc, nil)
	if n := recorded.FilterMessage("sql trace").Len(); n != 0 {
		t.Errorf("trace should not be logged at warn level, got %d", n)
	}

	silent := l.LogMode(glogger.Silent)
	silent.Trace(ctx, time.Now(), fc, errors.New("ignored"))
	if n := recorded.FilterMessage("sql error").Len(); n != 1 {
		t.Errorf("silent logger should not log, got %d sql errors", n)
	}
}
