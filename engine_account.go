package authgate

import (
	"context"
	"errors"
	"fmt"
)

// Register creates an account from the request and issues a session token
// pair for the new user. The password is hashed before it reaches the
// provider; a taken email surfaces as [ErrAccountExists].
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "hash_policy",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountDuplicate)
			e.emitAudit(ctx, auditEventAccountDuplicate, false, "", ErrAccountExists, nil)
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", err, func() map[string]string {
			return map[string]string{
				"reason": "create_user_failed",
			}
		})
		return nil, err
	}

	tokens, err := e.sessions.IssueSession(user)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, user.UserID, ErrSessionIssueFailed, func() map[string]string {
			return map[string]string{
				"reason": "issue_session_failed",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrSessionIssueFailed, err)
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, user.UserID, nil, nil)

	return &RegisterResult{User: user, Tokens: tokens}, nil
}
