package authgate

import (
	"errors"
	"time"

	"github.com/altiverse/authgate/ratelimit"
)

// Config is the engine configuration tree. Instances are set up once during
// initialization and treated as immutable afterwards.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	RateLimit     RateLimitConfig
	PasswordReset PasswordResetConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

// JWTConfig configures the default JWT session issuer.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

// PasswordConfig holds Argon2id cost parameters. Memory is in KB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// RateLimitConfig holds the fixed-window policies for the two throttled
// operations. FailOpen admits traffic when the counter store is down; the
// default is to reject it.
type RateLimitConfig struct {
	Login        ratelimit.Policy
	ResetRequest ratelimit.Policy
	FailOpen     bool
}

// PasswordResetConfig configures the reset-token lifecycle.
type PasswordResetConfig struct {
	Enabled     bool
	TokenTTL    time.Duration
	TokenLength int
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig configures the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: 5 login attempts per
// minute per IP, 3 reset requests per hour per email, 32-character reset
// tokens valid for 10 minutes. JWT keys must still be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		RateLimit: RateLimitConfig{
			Login:        ratelimit.Policy{Limit: 5, Window: time.Minute},
			ResetRequest: ratelimit.Policy{Limit: 3, Window: time.Hour},
			FailOpen:     false,
		},
		PasswordReset: PasswordResetConfig{
			Enabled:     true,
			TokenTTL:    10 * time.Minute,
			TokenLength: 32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.SigningMethod != "hs256" && c.JWT.SigningMethod != "ed25519" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Rate limits
	if c.RateLimit.Login.Limit <= 0 {
		return errors.New("RateLimit Login Limit must be > 0")
	}
	if c.RateLimit.Login.Window <= 0 {
		return errors.New("RateLimit Login Window must be > 0")
	}
	if c.RateLimit.ResetRequest.Limit <= 0 {
		return errors.New("RateLimit ResetRequest Limit must be > 0")
	}
	if c.RateLimit.ResetRequest.Window <= 0 {
		return errors.New("RateLimit ResetRequest Window must be > 0")
	}

	// Password reset
	if c.PasswordReset.Enabled {
		if c.PasswordReset.TokenTTL <= 0 {
			return errors.New("PasswordReset TokenTTL must be > 0")
		}
		if c.PasswordReset.TokenLength < 16 {
			return errors.New("PasswordReset TokenLength must be >= 16")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
