package authgate

import (
	"errors"

	"github.com/altiverse/authgate/jwt"
	"github.com/altiverse/authgate/kv"
	"github.com/altiverse/authgate/password"
	"github.com/altiverse/authgate/ratelimit"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A builder is single-use; Build fails on a
// second call.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  kv.Store

	userProvider UserProvider
	sessions     SessionIssuer
	auditSink    AuditSink

	built bool
}

// New starts a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the TTL store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets an explicit TTL store, bypassing WithRedis.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithUserProvider sets the account store. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithSessionIssuer replaces the default JWT session issuer.
func (b *Builder) WithSessionIssuer(issuer SessionIssuer) *Builder {
	b.sessions = issuer
	return b
}

// WithAuditSink sets the sink receiving audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and assembles the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client required")
		}
		store = kv.NewRedisStore(b.redis)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		store:        store,
		userProvider: b.userProvider,
	}

	engine.limiter = ratelimit.New(store, ratelimit.Config{
		FailOpen: cfg.RateLimit.FailOpen,
	})
	engine.resetTokens = newResetTokenStore(store, cfg.PasswordReset)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	sessions := b.sessions
	if sessions == nil {
		jm, err := jwt.NewManager(jwt.Config{
			AccessTTL:     cfg.JWT.AccessTTL,
			RefreshTTL:    cfg.JWT.RefreshTTL,
			SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.PublicKey),
			Issuer:        cfg.JWT.Issuer,
		})
		if err != nil {
			return nil, err
		}
		sessions = &jwtSessionIssuer{manager: jm}
	}
	engine.sessions = sessions

	b.built = true

	return engine, nil
}

// jwtSessionIssuer is the default SessionIssuer backed by the jwt package.
type jwtSessionIssuer struct {
	manager *jwt.Manager
}

func (s *jwtSessionIssuer) IssueSession(user UserRecord) (TokenPair, error) {
	pair, err := s.manager.IssuePair(user.UserID, user.Email)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	}, nil
}
