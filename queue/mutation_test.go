package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dailyyoga/cachedkv/store"
)

func TestMutation_Constructors(t *testing.T) {
	set := NewSet("a", map[string]any{"x": 1}, time.Minute)
	if set.Op != OpSet || set.Key != "a" || set.TTL != time.Minute {
		t.Errorf("unexpected set mutation: %+v", set)
	}
	if set.ID == "" || set.EnqueuedAt.IsZero() {
		t.Error("expected id and timestamp")
	}

	del := NewDelete("a")
	if del.Op != OpDelete || del.Key != "a" || del.Value != nil {
		t.Errorf("unexpected delete mutation: %+v", del)
	}

	clr := NewClear()
	if clr.Op != OpClear || clr.Key != "" {
		t.Errorf("unexpected clear mutation: %+v", clr)
	}

	if set.ID == del.ID || del.ID == clr.ID {
		t.Error("expected unique ids")
	}
}

func TestMutation_Apply(t *testing.T) {
	s, err := store.NewMemory(nil, &store.MemoryConfig{})
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := NewSet("a", 1, 0).Apply(ctx, s); err != nil {
		t.Fatalf("set Apply failed: %v", err)
	}
	NewSet("b", 2, 0).Apply(ctx, s)
	if v, found, _ := s.Get(ctx, "a"); !found || v != 1 {
		t.Errorf("expected a=1, got %v found=%v", v, found)
	}

	NewDelete("a").Apply(ctx, s)
	if _, found, _ := s.Get(ctx, "a"); found {
		t.Error("expected a to be deleted")
	}

	NewClear().Apply(ctx, s)
	if _, found, _ := s.Get(ctx, "b"); found {
		t.Error("expected b to be cleared")
	}
}

func TestMutation_ApplyErrors(t *testing.T) {
	if err := NewClear().Apply(context.Background(), nil); !errors.Is(err, ErrNilStore) {
		t.Errorf("expected ErrNilStore, got %v", err)
	}

	s, _ := store.NewMemory(nil, &store.MemoryConfig{})
	defer s.Close()
	m := Mutation{Op: "rename"}
	if err := m.Apply(context.Background(), s); err == nil || !strings.Contains(err.Error(), "rename") {
		t.Errorf("expected unknown op error, got %v", err)
	}
}

func TestMutation_String(t *testing.T) {
	m := NewSet("user:1", "v", 0)
	if got := m.String(); !strings.HasPrefix(got, `set "user:1"`) {
		t.Errorf("unexpected String(): %s", got)
	}
	if got := NewClear().String(); !strings.HasPrefix(got, "clear(") {
		t.Errorf("unexpected String(): %s", got)
	}
}
