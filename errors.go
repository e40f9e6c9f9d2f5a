package authgate

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for any credential failure:
	// unknown email, wrong password, empty password. The causes are not
	// distinguished to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when a user id that resolved earlier no
	// longer does, e.g. the account was deleted between reset-token issuance
	// and redemption.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by Register when the email is taken.
	// UserProvider implementations must return it from CreateUser on a
	// duplicate email.
	ErrAccountExists = errors.New("account already exists")
	// ErrLoginRateLimited marks a rejected login-rate decision in audit
	// records. Rate limiting is a normal outcome, not a failure.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrResetRateLimited marks a rejected reset-request-rate decision in
	// audit records.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrResetTokenInvalid covers reset tokens that were never issued, have
	// expired, or were already redeemed. The three causes are deliberately
	// indistinguishable.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	// ErrResetDisabled is returned when the password-reset flow is switched
	// off in configuration.
	ErrResetDisabled = errors.New("password reset disabled")
	// ErrStoreUnavailable is an infrastructure fault from the TTL store.
	// It is propagated, never retried by the engine.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrSessionIssueFailed wraps failures from the session issuer.
	ErrSessionIssueFailed = errors.New("session issuance failed")
	// ErrPasswordPolicy is returned when a password cannot be hashed under
	// the configured policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrEngineNotReady is returned when a partially constructed engine is
	// used.
	ErrEngineNotReady = errors.New("engine not initialized")
)
