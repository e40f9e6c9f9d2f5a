package authgate

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// RequestPasswordReset issues a single-use reset token for the account
// behind email. An unknown email is not an error: the call returns an empty
// token and no store key is written, so callers can answer with the same
// success shape either way. A small random delay narrows the timing
// difference between the two paths.
//
// Rate limiting is composed in front by the caller via
// [Engine.CheckResetRequestRate].
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if e == nil || e.resetTokens == nil || e.userProvider == nil {
		return "", ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return "", ErrResetDisabled
	}

	user, err := e.userProvider.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			// A provider fault is not an unknown email; propagate it
			// instead of answering with the enumeration-safe shape.
			e.metricInc(MetricStoreFault)
			e.emitAudit(ctx, auditEventResetRequest, false, "", err, func() map[string]string {
				return map[string]string{
					"reason": "find_user_failed",
				}
			})
			return "", err
		}
		if delayErr := sleepEnumerationDelay(ctx); delayErr != nil {
			return "", delayErr
		}
		e.emitAudit(ctx, auditEventResetRequest, false, "", ErrUserNotFound, func() map[string]string {
			return map[string]string{
				"reason": "unknown_email",
			}
		})
		return "", nil
	}

	token, err := e.resetTokens.Issue(ctx, user.UserID)
	if err != nil {
		e.metricInc(MetricStoreFault)
		e.emitAudit(ctx, auditEventResetRequest, false, user.UserID, ErrStoreUnavailable, nil)
		return "", mapStoreError(err)
	}

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, user.UserID, nil, nil)

	return token, nil
}

// ConfirmPasswordReset redeems the token and replaces the user's password
// hash. A token that was never issued, has expired or was already redeemed
// fails uniformly with [ErrResetTokenInvalid]. A user deleted between
// issuance and redemption surfaces as [ErrUserNotFound] and is audited
// under its own event type.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if e == nil || e.resetTokens == nil || e.userProvider == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return ErrResetDisabled
	}

	userID, err := e.resetTokens.Redeem(ctx, token)
	if err != nil {
		if errors.Is(err, errResetTokenNotFound) {
			e.metricInc(MetricResetConfirmFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, "", ErrResetTokenInvalid, nil)
			return ErrResetTokenInvalid
		}
		e.metricInc(MetricStoreFault)
		e.emitAudit(ctx, auditEventResetConfirm, false, "", ErrStoreUnavailable, nil)
		return mapStoreError(err)
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		// The token was valid and is now consumed, but the account is
		// gone. Audited distinctly from an invalid token.
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetUserMissing, false, userID, ErrUserNotFound, nil)
		return ErrUserNotFound
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, user.UserID, ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "hash_policy",
			}
		})
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	if err := e.userProvider.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, user.UserID, err, func() map[string]string {
			return map[string]string{
				"reason": "update_hash_failed",
			}
		})
		return err
	}
	newPassword = ""

	e.metricInc(MetricResetConfirmSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, user.UserID, nil, nil)

	return nil
}

func sleepEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	delay := time.Duration(minMs+n.Int64()) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
