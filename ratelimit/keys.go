package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
)

// LoginKey builds the limiter key for login attempts from a client IP.
func LoginKey(ip string) string {
	return "lt:" + ip
}

// ResetRequestKey builds the limiter key for password-reset requests from a
// target email. The email is hashed so raw addresses never appear as store
// keys.
func ResetRequestKey(email string) string {
	sum := sha256.Sum256([]byte(email))
	return "prt:" + hex.EncodeToString(sum[:])
}
