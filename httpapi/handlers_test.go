package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/altiverse/authgate"
	"github.com/redis/go-redis/v9"
)

type memProvider struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]authgate.UserRecord
	byEmail map[string]string
}

func newMemProvider() *memProvider {
	return &memProvider{
		byID:    make(map[string]authgate.UserRecord),
		byEmail: make(map[string]string),
	}
}

func (p *memProvider) FindByEmail(ctx context.Context, email string) (authgate.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.byEmail[email]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return p.byID[id], nil
}

func (p *memProvider) GetUserByID(ctx context.Context, userID string) (authgate.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.byID[userID]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return user, nil
}

func (p *memProvider) CreateUser(ctx context.Context, in authgate.CreateUserInput) (authgate.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[in.Email]; exists {
		return authgate.UserRecord{}, authgate.ErrAccountExists
	}

	p.nextID++
	user := authgate.UserRecord{
		UserID:       fmt.Sprintf("u-%d", p.nextID),
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
	}
	p.byID[user.UserID] = user
	p.byEmail[user.Email] = user.UserID

	return user, nil
}

func (p *memProvider) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
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

func newTestHandler(t *testing.T) (http.Handler, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := authgate.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("test-secret-at-least-32-bytes-long!!")
	cfg.JWT.Issuer = "authgate-test"
	cfg.Password = authgate.PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(newMemProvider()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return New(engine).Routes(), mr
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}

	return rec, decoded
}

func TestRegisterAndLogin(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/register", map[string]string{
		"email":     "alice@example.com",
		"full_name": "Alice Example",
		"password":  "password-1",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201 (body %v)", rec.Code, body)
	}
	if body["message"] != "User registered successfully" {
		t.Fatalf("message = %v", body["message"])
	}
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "alice@example.com" || user["id"] == "" {
		t.Fatalf("user payload = %v", body["user"])
	}
	tokens, ok := body["tokens"].(map[string]any)
	if !ok || tokens["access"] == "" || tokens["refresh"] == "" {
		t.Fatalf("tokens payload = %v", body["tokens"])
	}

	rec, body = doJSON(t, handler, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "password-1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200 (body %v)", rec.Code, body)
	}
	if body["message"] != "Login successful" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestRegisterDuplicate(t *testing.T) {
	handler, _ := newTestHandler(t)

	payload := map[string]string{
		"email":    "alice@example.com",
		"password": "password-1",
	}

	if rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/register", payload, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, want 201", rec.Code)
	}

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/register", payload, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}
	if body["error"] != "Email is already registered" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password-1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error"] != "Invalid email or password" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestLoginRateLimit(t *testing.T) {
	handler, _ := newTestHandler(t)

	header := http.Header{}
	header.Set("X-Forwarded-For", "9.9.9.9")

	payload := map[string]string{
		"email":    "nobody@example.com",
		"password": "password-1",
	}

	for i := 1; i <= 5; i++ {
		rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/login", payload, header)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d status = %d, want 400", i, rec.Code)
		}
	}

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/login", payload, header)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("attempt 6 status = %d, want 429 (body %v)", rec.Code, body)
	}
	if body["error"] != "Too many login attempts" {
		t.Fatalf("error = %v", body["error"])
	}
	retry, ok := body["retry_after"].(float64)
	if !ok || retry <= 0 || retry > 60 {
		t.Fatalf("retry_after = %v, want in (0, 60]", body["retry_after"])
	}

	// Another client is not affected.
	otherHeader := http.Header{}
	otherHeader.Set("X-Forwarded-For", "8.8.8.8")
	if rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/login", payload, otherHeader); rec.Code != http.StatusBadRequest {
		t.Fatalf("other client status = %d, want 400", rec.Code)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	handler, _ := newTestHandler(t)

	if rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "carol@example.com",
		"password": "old-password",
	}, nil); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", rec.Code)
	}

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/password-reset/request", map[string]string{
		"email": "carol@example.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset request status = %d, want 200 (body %v)", rec.Code, body)
	}
	if body["message"] != "Password reset token generated successfully" {
		t.Fatalf("message = %v", body["message"])
	}
	if body["expires_in"] != "10 minutes" {
		t.Fatalf("expires_in = %v, want %q", body["expires_in"], "10 minutes")
	}
	token, ok := body["token"].(string)
	if !ok || len(token) != 32 {
		t.Fatalf("token = %v, want a 32-character string", body["token"])
	}

	rec, body = doJSON(t, handler, http.MethodPost, "/api/auth/password-reset/confirm", map[string]string{
		"token":        token,
		"new_password": "new-password",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, want 200 (body %v)", rec.Code, body)
	}
	if body["message"] != "Password reset successful" {
		t.Fatalf("message = %v", body["message"])
	}

	if rec, _ = doJSON(t, handler, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": "new-password",
	}, nil); rec.Code != http.StatusOK {
		t.Fatalf("login with new password status = %d, want 200", rec.Code)
	}
	if rec, _ = doJSON(t, handler, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": "old-password",
	}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("login with old password status = %d, want 400", rec.Code)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/password-reset/request", map[string]string{
		"email": "nobody@example.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["message"] != "If the email exists, a password reset token has been generated" {
		t.Fatalf("message = %v", body["message"])
	}
	if _, hasToken := body["token"]; hasToken {
		t.Fatal("token present in unknown-email response")
	}
}

func TestPasswordResetRequestRateLimit(t *testing.T) {
	handler, _ := newTestHandler(t)

	if rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "carol@example.com",
		"password": "old-password",
	}, nil); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", rec.Code)
	}

	payload := map[string]string{"email": "carol@example.com"}

	for i := 1; i <= 3; i++ {
		rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/password-reset/request", payload, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/password-reset/request", payload, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("request 4 status = %d, want 429 (body %v)", rec.Code, body)
	}
	if body["error"] != "Too many password reset requests" {
		t.Fatalf("error = %v", body["error"])
	}
	retry, ok := body["retry_after"].(float64)
	if !ok || retry <= 0 || retry > 3600 {
		t.Fatalf("retry_after = %v, want in (0, 3600]", body["retry_after"])
	}
}

func TestPasswordResetRequestMissingEmail(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/password-reset/request", map[string]string{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error"] != "Email is required" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestPasswordResetConfirmInvalidToken(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/password-reset/confirm", map[string]string{
		"token":        "never-issued",
		"new_password": "new-password",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error"] != "Invalid or expired token" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestPasswordResetConfirmMissingFields(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/auth/password-reset/confirm", map[string]string{
		"token": "some-token",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error"] != "Token and new password are required" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestHealthz(t *testing.T) {
	handler, mr := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	mr.Close()

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status after store shutdown = %d, want 503", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("ClientIP = %q, want 203.0.113.7", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:4242"
	if got := ClientIP(req); got != "198.51.100.9" {
		t.Fatalf("ClientIP = %q, want 198.51.100.9", got)
	}
}
