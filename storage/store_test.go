package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Polytraders/polytraders/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, found, err := store.Get(ctx, "nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected missing key to be not found")
		}
	})

	t.Run("put then get", func(t *testing.T) {
		if err := store.Put(ctx, "k", `{"version":1}`); err != nil {
			t.Fatalf("Put: %v", err)
		}
		v, found, err := store.Get(ctx, "k")
		if err != nil || !found {
			t.Fatalf("Get: found=%v err=%v", found, err)
		}
		if v != `{"version":1}` {
			t.Errorf("unexpected value %q", v)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		if err := store.Put(ctx, "k", "second"); err != nil {
			t.Fatalf("Put: %v", err)
		}
		v, _, _ := store.Get(ctx, "k")
		if v != "second" {
			t.Errorf("expected overwrite, got %q", v)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, found, _ := store.Get(ctx, "k"); found {
			t.Error("key should be deleted")
		}
		if err := store.Delete(ctx, "k"); err != nil {
			t.Errorf("deleting a missing key should not fail: %v", err)
		}
	})
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	first, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Put(ctx, "profile", "data"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	v, found, err := second.Get(ctx, "profile")
	if err != nil || !found || v != "data" {
		t.Errorf("expected persisted value, got %q found=%v err=%v", v, found, err)
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.Data.DBPath = filepath.Join(t.TempDir(), "open.db")

	store, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	cfg.Data.Driver = "cassandra"
	if _, err := Open(cfg, nil); err == nil {
		t.Error("expected unknown driver error")
	}
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	t.Run("tracks calls", func(t *testing.T) {
		store.Put(ctx, "a", "1")
		store.Get(ctx, "a")
		store.Get(ctx, "b")

		if store.CallCount("Put") != 1 {
			t.Errorf("expected 1 Put, got %d", store.CallCount("Put"))
		}
		if store.CallCount("Get") != 2 {
			t.Errorf("expected 2 Get, got %d", store.CallCount("Get"))
		}
	})

	t.Run("error injection fires once", func(t *testing.T) {
		injected := errors.New("disk full")
		store.ErrorOnNext["Put"] = injected

		if err := store.Put(ctx, "a", "2"); !errors.Is(err, injected) {
			t.Fatalf("expected injected error, got %v", err)
		}
		if err := store.Put(ctx, "a", "3"); err != nil {
			t.Fatalf("second Put should succeed: %v", err)
		}
		if v, _ := store.Raw("a"); v != "3" {
			t.Errorf("expected 3, got %q", v)
		}
	})

	t.Run("raw seeding", func(t *testing.T) {
		store.SetRaw("corrupt", "{not json")
		v, found, err := store.Get(ctx, "corrupt")
		if err != nil || !found || v != "{not json" {
			t.Errorf("unexpected seeded value %q found=%v err=%v", v, found, err)
		}
	})
}

func TestPostgresCloseKeepsSharedRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	store := &PostgresStore{redis: rdb}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); errors.Is(err, redis.ErrClosed) {
		t.Error("store closed the caller's redis client")
	}
}
