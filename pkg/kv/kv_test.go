package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "active_tenant", "t1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, err := store.Get(ctx, "active_tenant")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "t1" {
		t.Errorf("Get() = %q, want %q", v, "t1")
	}

	// Overwrite
	if err := store.Set(ctx, "active_tenant", "t2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := store.Get(ctx, "active_tenant"); v != "t2" {
		t.Errorf("Get() after overwrite = %q, want %q", v, "t2")
	}

	if err := store.Delete(ctx, "active_tenant"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "active_tenant"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is not an error
	if err := store.Delete(ctx, "active_tenant"); err != nil {
		t.Errorf("Delete() of absent key error = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	testStore(t, NewRedisStore(client))
}
