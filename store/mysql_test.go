package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dailyyoga/cachedkv/db"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// setupTestSQL runs the MySQL adapter's queries against a file-backed SQLite
// database through gorm, so no server is needed
func setupTestSQL(t *testing.T, ttl time.Duration) (Store, *gorm.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.db")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: glogger.Discard})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	s, err := NewMySQLWithDatabase(nil, db.Wrap(nil, gdb), "entries", ttl)
	if err != nil {
		t.Fatalf("NewMySQLWithDatabase failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, gdb
}

func TestMySQL_CreatesTable(t *testing.T) {
	_, gdb := setupTestSQL(t, 0)
	if !gdb.Migrator().HasTable("entries") {
		t.Fatal("expected entries table to be created")
	}
}

func TestMySQL_GetSetDelete(t *testing.T) {
	s, _ := setupTestSQL(t, 0)
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	if err := s.Set(ctx, "k", "v1", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, found, err := s.Get(ctx, "k")
	if err != nil || !found || v != "v1" {
		t.Fatalf("expected v1, got %v found=%v err=%v", v, found, err)
	}

	// second Set on the same key is an upsert
	if err := s.Set(ctx, "k", "v2", 0); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	v, found, err = s.Get(ctx, "k")
	if err != nil || !found || v != "v2" {
		t.Fatalf("expected v2 after overwrite, got %v found=%v err=%v", v, found, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Error("expected miss after delete")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting an absent key should not fail, got %v", err)
	}
}

func TestMySQL_ZeroValuesAreFound(t *testing.T) {
	s, _ := setupTestSQL(t, 0)
	ctx := context.Background()

	tests := []struct {
		key   string
		value any
	}{
		{"false", false},
		{"empty", ""},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := s.Set(ctx, tt.key, tt.value, 0); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			v, found, err := s.Get(ctx, tt.key)
			if err != nil || !found {
				t.Fatalf("expected hit, got found=%v err=%v", found, err)
			}
			if v != tt.value {
				t.Errorf("got %#v, want %#v", v, tt.value)
			}
		})
	}
}

func TestMySQL_TTL(t *testing.T) {
	s, _ := setupTestSQL(t, 0)
	ctx := context.Background()

	if err := s.Set(ctx, "short", "v", 20*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "forever", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found, _ := s.Get(ctx, "short"); !found {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(50 * time.Millisecond)

	if _, found, err := s.Get(ctx, "short"); err != nil || found {
		t.Errorf("expected expired entry to be a miss, got found=%v err=%v", found, err)
	}
	if _, found, _ := s.Get(ctx, "forever"); !found {
		t.Error("entry without ttl should not expire")
	}

	// overwriting with no ttl clears the old expiry
	if err := s.Set(ctx, "short", "again", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, found, _ := s.Get(ctx, "short"); !found || v != "again" {
		t.Errorf("expected rewritten entry, got %v found=%v", v, found)
	}
}

func TestMySQL_DefaultTTL(t *testing.T) {
	s, gdb := setupTestSQL(t, time.Hour)
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	var row mysqlEntry
	if err := gdb.Table("entries").Where("k = ?", "k").Take(&row).Error; err != nil {
		t.Fatalf("reading row failed: %v", err)
	}
	if row.ExpiresAt == nil {
		t.Fatal("expected default ttl to set expires_at")
	}
	if d := time.Until(*row.ExpiresAt); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expires_at %v out of range", d)
	}
}

func TestMySQL_Clear(t *testing.T) {
	s, _ := setupTestSQL(t, 0)
	ctx := context.Background()

	cleared := 0
	s.On(EventClear, func(Event) { cleared++ })

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, k, k, 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, found, _ := s.Get(ctx, k); found {
			t.Errorf("expected %s to be cleared", k)
		}
	}
	if cleared != 1 {
		t.Errorf("expected one clear event, got %d", cleared)
	}
}

func TestMySQL_Close(t *testing.T) {
	s, _ := setupTestSQL(t, 0)
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if err := s.Set(ctx, "k", "v", 0); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, _, err := s.Get(ctx, "k"); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestNewMySQLWithDatabase_Errors(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kv.db")), &gorm.Config{Logger: glogger.Discard})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	database := db.Wrap(nil, gdb)
	defer database.Close()

	if _, err := NewMySQLWithDatabase(nil, database, "", 0); err == nil {
		t.Error("expected error for empty table")
	}
	if _, err := NewMySQLWithDatabase(nil, database, "entries", -time.Second); err == nil {
		t.Error("expected error for negative ttl")
	}
}
