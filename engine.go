package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/altiverse/authgate/kv"
	"github.com/altiverse/authgate/password"
	"github.com/altiverse/authgate/ratelimit"
)

// Engine composes the TTL store, rate limiter, reset-token store, password
// hasher and session issuer behind the credential operations. Configure it
// once through the [Builder] and treat it as immutable.
type Engine struct {
	config       Config
	store        kv.Store
	limiter      *ratelimit.Limiter
	resetTokens  *resetTokenStore
	passwordHash *password.Argon2
	sessions     SessionIssuer
	userProvider UserProvider
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Ping verifies the TTL store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return mapStoreError(e.store.Ping(ctx))
}

// AuditDropped reports how many audit events were discarded.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// LoginPolicy returns the configured login rate-limit policy.
func (e *Engine) LoginPolicy() ratelimit.Policy {
	return e.config.RateLimit.Login
}

// ResetRequestPolicy returns the configured reset-request rate-limit policy.
func (e *Engine) ResetRequestPolicy() ratelimit.Policy {
	return e.config.RateLimit.ResetRequest
}

// ResetTokenTTL returns the configured reset-token lifetime.
func (e *Engine) ResetTokenTTL() time.Duration {
	return e.config.PasswordReset.TokenTTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CheckLoginRate records one login attempt against the caller's IP (taken
// from the context, see [WithClientIP]) and reports whether it is admitted.
// Rate limiting is composed in front of [Engine.Login] by the caller so the
// ordering of checks stays visible; a rejected decision is a normal outcome,
// not an error.
func (e *Engine) CheckLoginRate(ctx context.Context) (ratelimit.Decision, error) {
	if e == nil || e.limiter == nil {
		return ratelimit.Decision{Admitted: true}, nil
	}

	ip := clientIPFromContext(ctx)
	decision, err := e.limiter.Check(ctx, ratelimit.LoginKey(ip), e.config.RateLimit.Login)
	if err != nil {
		e.metricInc(MetricStoreFault)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrStoreUnavailable, nil)
		return decision, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !decision.Admitted {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, nil)
		e.emitRateLimit(ctx, "login", nil)
	}

	return decision, nil
}

// CheckResetRequestRate records one password-reset request against the
// target email and reports whether it is admitted. An empty email is always
// admitted; the request will fail validation before reaching the manager.
func (e *Engine) CheckResetRequestRate(ctx context.Context, email string) (ratelimit.Decision, error) {
	if e == nil || e.limiter == nil || email == "" {
		return ratelimit.Decision{Admitted: true}, nil
	}

	decision, err := e.limiter.Check(ctx, ratelimit.ResetRequestKey(email), e.config.RateLimit.ResetRequest)
	if err != nil {
		e.metricInc(MetricStoreFault)
		e.emitAudit(ctx, auditEventResetRequestRateLimited, false, "", ErrStoreUnavailable, nil)
		return decision, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !decision.Admitted {
		e.metricInc(MetricResetRequestRateLimited)
		e.emitAudit(ctx, auditEventResetRequestRateLimited, false, "", ErrResetRateLimited, nil)
		e.emitRateLimit(ctx, "password_reset_request", nil)
	}

	return decision, nil
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kv.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
