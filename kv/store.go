// Package kv defines the TTL key-value store contract the authgate engine
// runs on, together with its Redis implementation. Every ephemeral record
// (rate-limit counters, reset tokens) lives behind this interface.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// Nil is returned when a key does not exist. An expired key and a key
	// that was never written are indistinguishable.
	Nil = errors.New("kv: key not found")
	// ErrUnavailable wraps infrastructure faults from the backing store.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is a key-value store with per-key expiry. Implementations must make
// Incr and GetDel atomic with respect to concurrent callers; the limiter and
// the reset-token store depend on it.
type Store interface {
	// Set writes value under key with the given TTL, replacing any
	// previous value and its expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key, or Nil when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// GetDel returns the value for key and deletes it in one atomic step.
	// Exactly one of N concurrent callers observes the value; the rest
	// get Nil.
	GetDel(ctx context.Context, key string) (string, error)

	// Del removes the given keys. Deleting an absent key is not an error.
	Del(ctx context.Context, keys ...string) error

	// Incr atomically increments the integer counter at key and returns
	// the new value. An absent key counts from zero.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining lifetime of key. Absent keys return Nil;
	// keys without an expiry return zero.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
