package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/altiverse/authgate/internal"
	"github.com/altiverse/authgate/kv"
)

const resetTokenKeyPrefix = "pr"

var errResetTokenNotFound = errors.New("reset token not found")

// resetTokenStore issues and redeems single-use password-reset tokens. The
// record is a bare token->userID mapping with a TTL; absent, expired and
// already-redeemed tokens are indistinguishable by construction.
type resetTokenStore struct {
	store       kv.Store
	ttl         time.Duration
	tokenLength int
}

func newResetTokenStore(store kv.Store, cfg PasswordResetConfig) *resetTokenStore {
	return &resetTokenStore{
		store:       store,
		ttl:         cfg.TokenTTL,
		tokenLength: cfg.TokenLength,
	}
}

func (s *resetTokenStore) key(token string) string {
	return resetTokenKeyPrefix + ":" + token
}

// Issue generates a fresh token for userID and stores the mapping under the
// configured TTL. No collision check is made; at the configured length the
// token space makes collisions a non-concern.
func (s *resetTokenStore) Issue(ctx context.Context, userID string) (string, error) {
	token, err := internal.NewResetToken(s.tokenLength)
	if err != nil {
		return "", err
	}

	if err := s.store.Set(ctx, s.key(token), userID, s.ttl); err != nil {
		return "", err
	}

	return token, nil
}

// Redeem consumes the token and returns the user it was issued for. The
// lookup and delete are one atomic store operation, so exactly one of N
// concurrent redemptions of the same token succeeds.
func (s *resetTokenStore) Redeem(ctx context.Context, token string) (string, error) {
	userID, err := s.store.GetDel(ctx, s.key(token))
	if err != nil {
		if errors.Is(err, kv.Nil) {
			return "", errResetTokenNotFound
		}
		return "", err
	}

	return userID, nil
}
