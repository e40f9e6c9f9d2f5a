// Package ratelimit implements a fixed-window rate limiter over a TTL
// key-value store.
package ratelimit

import (
	"context"
	"time"

	"github.com/altiverse/authgate/kv"
)

// Policy describes one fixed window: at most Limit admissions per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a limiter check. RetryAfter is only meaningful
// when Admitted is false; it reports the remaining window, clamped to >= 0.
type Decision struct {
	Admitted   bool
	RetryAfter time.Duration
}

// Config holds limiter behavior toggles.
type Config struct {
	// FailOpen admits requests when the store is unreachable. The default
	// (false) rejects them.
	FailOpen bool
}

// Limiter counts hits per identity key in fixed windows backed by a
// [kv.Store]. The window boundary is set by the first hit; a counter that
// expires mid-burst allows up to 2x Limit requests across the boundary,
// which is accepted fixed-window imprecision.
type Limiter struct {
	store  kv.Store
	config Config
}

// New creates a [Limiter] backed by the given store.
func New(store kv.Store, cfg Config) *Limiter {
	return &Limiter{
		store:  store,
		config: cfg,
	}
}

// Check records one hit against key and reports whether it is admitted under
// the policy. Store faults return an error wrapping [kv.ErrUnavailable]
// together with a Decision whose Admitted field reflects the configured
// fail-open or fail-closed behavior.
func (l *Limiter) Check(ctx context.Context, key string, policy Policy) (Decision, error) {
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return Decision{Admitted: l.config.FailOpen}, err
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.store.Expire(ctx, key, policy.Window); err != nil {
			// Don't leave an immortal counter behind.
			_ = l.store.Del(ctx, key)
			return Decision{Admitted: l.config.FailOpen}, err
		}
	}

	if count <= int64(policy.Limit) {
		return Decision{Admitted: true}, nil
	}

	remaining, err := l.store.TTL(ctx, key)
	if err != nil {
		if err == kv.Nil {
			// Counter expired between increment and TTL lookup; the
			// next hit starts a fresh window.
			return Decision{Admitted: false, RetryAfter: 0}, nil
		}
		return Decision{Admitted: l.config.FailOpen}, err
	}
	if remaining <= 0 {
		// A counter without an expiry is a leftover from a failed Expire.
		// Clear it so the next hit starts a fresh window instead of
		// rejecting this identity forever.
		_ = l.store.Del(ctx, key)
		remaining = 0
	}

	return Decision{Admitted: false, RetryAfter: remaining}, nil
}
