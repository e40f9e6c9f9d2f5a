// Command authgated runs the credential HTTP service against Redis. Accounts
// live in an in-process store; swap memoryUserProvider for a real database
// when embedding the library.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/altiverse/authgate"
	"github.com/altiverse/authgate/httpapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		// Local development fallback. Counters and reset tokens will not
		// survive a restart.
		mr, err := miniredis.Run()
		if err != nil {
			log.Fatalf("start embedded redis: %v", err)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		log.Printf("REDIS_ADDR not set, using embedded redis at %s", redisAddr)
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()

	cfg := authgate.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(secret)
	cfg.JWT.Issuer = "authgated"
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(newMemoryUserProvider()).
		WithAuditSink(authgate.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	defer engine.Close()

	server := &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(engine).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// memoryUserProvider keeps accounts in process memory.
type memoryUserProvider struct {
	mu      sync.RWMutex
	byID    map[string]authgate.UserRecord
	byEmail map[string]string
}

func newMemoryUserProvider() *memoryUserProvider {
	return &memoryUserProvider{
		byID:    make(map[string]authgate.UserRecord),
		byEmail: make(map[string]string),
	}
}

func (p *memoryUserProvider) FindByEmail(ctx context.Context, email string) (authgate.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byEmail[email]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return p.byID[id], nil
}

func (p *memoryUserProvider) GetUserByID(ctx context.Context, userID string) (authgate.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	user, ok := p.byID[userID]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return user, nil
}

func (p *memoryUserProvider) CreateUser(ctx context.Context, in authgate.CreateUserInput) (authgate.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[in.Email]; exists {
		return authgate.UserRecord{}, authgate.ErrAccountExists
	}

	user := authgate.UserRecord{
		UserID:       uuid.NewString(),
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
	}
	p.byID[user.UserID] = user
	p.byEmail[user.Email] = user.UserID

	return user, nil
}

func (p *memoryUserProvider) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.byID[userID]
	if !ok {
		return authgate.ErrUserNotFound
	}
	user.PasswordHash = newHash
	p.byID[userID] = user

	return nil
}
