// Package authgate implements credential and session issuance for small
// services: account registration, password login that yields a bearer
// access/refresh token pair, and a self-service password-reset flow built on
// single-use, time-bounded tokens held in a TTL key-value store.
//
// The two operations most exposed to brute force and enumeration, login and
// reset request, are gated by a fixed-window rate limiter backed by the same
// store. The engine itself holds no mutable state; everything ephemeral lives
// behind the injected [kv.Store] (Redis in production, miniredis in tests),
// and account records live behind the caller-supplied [UserProvider].
//
// Construction goes through the fluent builder:
//
//	engine, err := authgate.New().
//		WithConfig(authgate.DefaultConfig()).
//		WithRedis(rdb).
//		WithUserProvider(provider).
//		Build()
//
// Rate limiting is not hidden inside the domain operations. Callers compose
// it explicitly in front of them via [Engine.CheckLoginRate] and
// [Engine.CheckResetRequestRate] (the httpapi package's guards do exactly
// this), so the ordering of checks and their short-circuiting stays visible
// at the call site.
package authgate
