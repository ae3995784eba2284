package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_NilConfig(t *testing.T) {
	l, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) failed: %v", err)
	}
	if l == nil {
		t.Fatal("New(nil) returned nil logger")
	}
	l.Info("test")
}

func TestNew_PartialConfig(t *testing.T) {
	l, err := New(&Config{Level: "debug", Name: "cachedkv"})
	if err != nil {
		t.Fatalf("New with partial config failed: %v", err)
	}
	l.Debug("debug from partial config")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"valid", &Config{Level: "info", Encoding: "json"}, false},
		{"upper case level", &Config{Level: "WARN", Encoding: "console"}, false},
		{"invalid level", &Config{Level: "loud", Encoding: "json"}, true},
		{"invalid encoding", &Config{Level: "info", Encoding: "xml"}, true},
		{"empty output path", &Config{Level: "info", Encoding: "json", OutputPaths: []string{"stderr", ""}}, true},
		{"empty error output path", &Config{Level: "info", Encoding: "json", ErrorOutputPaths: []string{""}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_MergeDefaults(t *testing.T) {
	cfg := (&Config{Level: "error"}).MergeDefaults()
	if cfg.Level != "error" || cfg.Encoding != "json" || len(cfg.OutputPaths) != 1 {
		t.Errorf("MergeDefaults failed: %+v", cfg)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) should return a logger")
	}

	core, recorded := observer.New(zapcore.InfoLevel)
	observed := zap.New(core)
	OrNop(observed).Info("kept")
	if recorded.Len() != 1 {
		t.Errorf("expected the given logger to be used, got %d entries", recorded.Len())
	}
}
