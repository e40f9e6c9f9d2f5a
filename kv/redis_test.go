package kv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func TestSetGetWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Fatalf("Get = %q, want %q", got, "v")
	}

	ttl, err := store.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("TTL = %v, want in (0, 1m]", ttl)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, Nil) {
		t.Fatalf("Get after expiry = %v, want Nil", err)
	}
	if _, err := store.TTL(ctx, "k"); !errors.Is(err, Nil) {
		t.Fatalf("TTL after expiry = %v, want Nil", err)
	}
}

func TestGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, Nil) {
		t.Fatalf("Get = %v, want Nil", err)
	}
}

func TestTTLNoExpiry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ttl, err := store.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl != 0 {
		t.Fatalf("TTL = %v, want 0 for a key without expiry", ttl)
	}
}

func TestGetDel(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.GetDel(ctx, "k")
	if err != nil {
		t.Fatalf("GetDel: %v", err)
	}
	if got != "v" {
		t.Fatalf("GetDel = %q, want %q", got, "v")
	}

	if _, err := store.GetDel(ctx, "k"); !errors.Is(err, Nil) {
		t.Fatalf("second GetDel = %v, want Nil", err)
	}
}

func TestGetDelSingleWinner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	const workers = 16

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.GetDel(ctx, "k")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, Nil):
		default:
			t.Fatalf("GetDel: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d winners, want exactly 1", wins)
	}
}

func TestIncrAndExpire(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "counter")
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Fatalf("Incr = %d, want %d", got, want)
		}
	}

	if err := store.Expire(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("Expire: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := store.Incr(ctx, "counter")
	if err != nil {
		t.Fatalf("Incr after expiry: %v", err)
	}
	if got != 1 {
		t.Fatalf("Incr after expiry = %d, want 1", got)
	}
}

func TestDel(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "b", "2", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := store.Del(ctx, "a", "b"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, Nil) {
		t.Fatalf("Get a = %v, want Nil", err)
	}
	if _, err := store.Get(ctx, "b"); !errors.Is(err, Nil) {
		t.Fatalf("Get b = %v, want Nil", err)
	}
}

func TestUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.Close()

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Get = %v, want ErrUnavailable", err)
	}
	if _, err := store.Incr(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Incr = %v, want ErrUnavailable", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Ping = %v, want ErrUnavailable", err)
	}
}
