package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewResetToken returns a random token of the given length drawn from the
// 62-character alphanumeric alphabet. Each position is chosen with
// crypto/rand via rand.Int, which is unbiased over the alphabet size.
func NewResetToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid token length")
	}

	max := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[n.Int64()]
	}

	return string(b), nil
}
