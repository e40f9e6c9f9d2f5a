package authgate

import (
	"context"
	"errors"
	"fmt"
)

// Login verifies the email/password pair against the user provider and
// issues a session token pair. All credential failures collapse into
// [ErrInvalidCredentials]; the caller cannot tell an unknown email from a
// wrong password.
//
// Rate limiting is not applied here. Compose [Engine.CheckLoginRate] in
// front of this call (the httpapi package does).
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	if email == "" || password == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "empty_credentials",
			}
		})
		return nil, ErrInvalidCredentials
	}

	user, err := e.userProvider.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			// Provider fault, not a credential failure.
			e.metricInc(MetricStoreFault)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", err, func() map[string]string {
				return map[string]string{
					"reason": "find_user_failed",
				}
			})
			return nil, err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}
	password = ""

	tokens, err := e.sessions.IssueSession(user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrSessionIssueFailed, func() map[string]string {
			return map[string]string{
				"reason": "issue_session_failed",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrSessionIssueFailed, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, nil, nil)

	return &LoginResult{User: user, Tokens: tokens}, nil
}
