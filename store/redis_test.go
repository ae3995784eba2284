package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T, cfg *RedisConfig) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	if cfg == nil {
		cfg = &RedisConfig{}
	}
	cfg.Addr = mr.Addr()
	cfg.DialTimeout = time.Second
	s, err := NewRedis(nil, cfg)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

// ============ Config Tests ============

func TestRedisConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *RedisConfig
		wantErr bool
	}{
		{"valid", &RedisConfig{Addr: "localhost:6379"}, false},
		{"empty addr", &RedisConfig{}, true},
		{"negative db", &RedisConfig{Addr: "localhost:6379", DB: -1}, true},
		{"negative pool", &RedisConfig{Addr: "localhost:6379", PoolSize: -1}, true},
		{"negative min idle", &RedisConfig{Addr: "localhost:6379", MinIdleConns: -1}, true},
		{"negative retries", &RedisConfig{Addr: "localhost:6379", MaxRetries: -1}, true},
		{"negative timeout", &RedisConfig{Addr: "localhost:6379", DialTimeout: -1}, true},
		{"negative op timeout", &RedisConfig{Addr: "localhost:6379", OpTimeout: -1}, true},
		{"negative ttl", &RedisConfig{Addr: "localhost:6379", TTL: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedisConfig_MergeDefaults(t *testing.T) {
	cfg := (&RedisConfig{Addr: "custom:6379"}).MergeDefaults()
	if cfg.Addr != "custom:6379" || cfg.PoolSize != 10 || cfg.DialTimeout != 5*time.Second {
		t.Error("MergeDefaults failed")
	}
	if cfg.Namespace != "cachedkv" || cfg.OpTimeout != 5*time.Second {
		t.Errorf("unexpected namespace/op timeout: %q %v", cfg.Namespace, cfg.OpTimeout)
	}
}

func TestRedisConfig_Options(t *testing.T) {
	cfg := &RedisConfig{Addr: "localhost:6379", Username: "u", Password: "p", DB: 2, PoolSize: 20}
	opts := cfg.Options()
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 20 {
		t.Error("Options conversion failed")
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Errorf("expected credentials to be copied, got %q/%q", opts.Username, opts.Password)
	}
}

// ============ Store Operations ============

func TestRedis_GetSetDelete(t *testing.T) {
	s, mr := setupTestRedis(t, &RedisConfig{Namespace: "app"})
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "k"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	if err := s.Set(ctx, "k", map[string]any{"name": "Panda"}, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists("app:k") {
		t.Fatal("expected namespaced key app:k")
	}

	v, found, err := s.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["name"] != "Panda" {
		t.Errorf("unexpected value %#v", v)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Error("expected miss after delete")
	}
}

func TestRedis_FalsyValueIsFound(t *testing.T) {
	s, _ := setupTestRedis(t, nil)
	ctx := context.Background()

	s.Set(ctx, "flag", false, 0)
	v, found, err := s.Get(ctx, "flag")
	if err != nil || !found || v != false {
		t.Errorf("expected found false value, got %v found=%v err=%v", v, found, err)
	}
}

func TestRedis_TTL(t *testing.T) {
	s, mr := setupTestRedis(t, &RedisConfig{TTL: time.Minute})
	ctx := context.Background()

	s.Set(ctx, "default", "v", 0)
	s.Set(ctx, "explicit", "v", time.Hour)
	if ttl := mr.TTL("cachedkv:default"); ttl != time.Minute {
		t.Errorf("expected default ttl 1m, got %v", ttl)
	}
	if ttl := mr.TTL("cachedkv:explicit"); ttl != time.Hour {
		t.Errorf("expected explicit ttl 1h, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, found, _ := s.Get(ctx, "default"); found {
		t.Error("expected default-ttl key to expire")
	}
	if _, found, _ := s.Get(ctx, "explicit"); !found {
		t.Error("expected explicit-ttl key to survive")
	}
}

func TestRedis_ClearOnlyTouchesNamespace(t *testing.T) {
	s, mr := setupTestRedis(t, &RedisConfig{Namespace: "mine"})
	ctx := context.Background()

	mr.Set("other:key", "keep")
	for i := 0; i < clearBatchSize+10; i++ {
		s.Set(ctx, fmt.Sprintf("k%d", i), i, 0)
	}

	cleared := 0
	s.On(EventClear, func(Event) { cleared++ })
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if n := len(mr.Keys()); n != 1 {
		t.Errorf("expected only the foreign key to survive, got %d keys", n)
	}
	if !mr.Exists("other:key") {
		t.Error("foreign key should not be cleared")
	}
	if cleared != 1 {
		t.Errorf("expected 1 clear event, got %d", cleared)
	}
}

func TestRedis_CorruptValue(t *testing.T) {
	s, mr := setupTestRedis(t, nil)
	mr.Set("cachedkv:bad", "\xc1")

	if _, _, err := s.Get(context.Background(), "bad"); err == nil {
		t.Error("expected codec error")
	}
}

func TestRedis_Close(t *testing.T) {
	s, _ := setupTestRedis(t, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if err := s.Set(context.Background(), "k", "v", 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestNewRedis_ConnectionError(t *testing.T) {
	_, err := NewRedis(nil, &RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	if err == nil {
		t.Error("expected connection error")
	}
}

func TestNewRedis_Auth(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireUserAuth("user", "pass")

	s, err := NewRedis(nil, &RedisConfig{Addr: mr.Addr(), Username: "user", Password: "pass", DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("expected successful connection, got %v", err)
	}
	s.Close()

	if _, err := NewRedis(nil, &RedisConfig{Addr: mr.Addr(), Username: "user", Password: "wrong", DialTimeout: time.Second}); err == nil {
		t.Error("expected authentication error")
	}
}
