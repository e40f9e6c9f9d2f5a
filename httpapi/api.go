// Package httpapi exposes the credential engine over HTTP. It owns the
// request/response shapes and composes the rate-limit checks in front of the
// engine operations.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/altiverse/authgate"
)

// API wires the engine's operations to HTTP handlers.
type API struct {
	engine *authgate.Engine
}

// New returns an API serving the given engine.
func New(engine *authgate.Engine) *API {
	return &API{engine: engine}
}

// Routes returns the handler tree:
//
//	POST /api/auth/register
//	POST /api/auth/login
//	POST /api/auth/password-reset/request
//	POST /api/auth/password-reset/confirm
//	GET  /healthz
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", a.withRequestContext(a.handleRegister))
	mux.HandleFunc("POST /api/auth/login", a.withRequestContext(a.guardLogin(a.handleLogin)))
	mux.HandleFunc("POST /api/auth/password-reset/request", a.withRequestContext(a.handleResetRequest))
	mux.HandleFunc("POST /api/auth/password-reset/confirm", a.withRequestContext(a.handleResetConfirm))
	mux.HandleFunc("GET /healthz", a.handleHealth)
	return mux
}

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type userPayload struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type tokensPayload struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func userFrom(u authgate.UserRecord) userPayload {
	return userPayload{ID: u.UserID, FullName: u.FullName, Email: u.Email}
}

func tokensFrom(t authgate.TokenPair) tokensPayload {
	return tokensPayload{Access: t.AccessToken, Refresh: t.RefreshToken}
}

// guardLogin runs the per-IP login rate check before the wrapped handler. A
// store fault fails closed unless the engine was configured fail-open, in
// which case the admitted decision lets the request through.
func (a *API) guardLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decision, err := a.engine.CheckLoginRate(r.Context())
		if err != nil && !decision.Admitted {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error": "Service temporarily unavailable",
			})
			return
		}
		if !decision.Admitted {
			policy := a.engine.LoginPolicy()
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "Too many login attempts",
				"message":     fmt.Sprintf("You have exceeded the limit of %d login attempts per minute. Please try again later.", policy.Limit),
				"retry_after": int(decision.RetryAfter.Seconds()),
			})
			return
		}
		next(w, r)
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Email and password are required"})
		return
	}

	result, err := a.engine.Register(r.Context(), authgate.RegisterRequest{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authgate.ErrAccountExists):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Email is already registered"})
		case errors.Is(err, authgate.ErrPasswordPolicy):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Password does not meet the policy"})
		case errors.Is(err, authgate.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "Service temporarily unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Registration failed"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    userFrom(result.User),
		"tokens":  tokensFrom(result.Tokens),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}

	result, err := a.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authgate.ErrInvalidCredentials):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid email or password"})
		case errors.Is(err, authgate.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "Service temporarily unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Login failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    userFrom(result.User),
		"tokens":  tokensFrom(result.Tokens),
	})
}

func (a *API) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Email is required"})
		return
	}

	decision, err := a.engine.CheckResetRequestRate(r.Context(), req.Email)
	if err != nil && !decision.Admitted {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "Service temporarily unavailable",
		})
		return
	}
	if !decision.Admitted {
		policy := a.engine.ResetRequestPolicy()
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       "Too many password reset requests",
			"message":     fmt.Sprintf("You have exceeded the limit of %d password reset requests per hour. Please try again later.", policy.Limit),
			"retry_after": int(decision.RetryAfter.Seconds()),
		})
		return
	}

	token, err := a.engine.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, authgate.ErrResetDisabled):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "Password reset is not available"})
		case errors.Is(err, authgate.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "Service temporarily unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Password reset request failed"})
		}
		return
	}

	if token == "" {
		// Unknown email. Same status as the known-email path so callers
		// cannot probe which addresses exist.
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "If the email exists, a password reset token has been generated",
		})
		return
	}

	ttl := a.engine.ResetTokenTTL()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Password reset token generated successfully",
		"token":      token,
		"expires_in": fmt.Sprintf("%d minutes", int(ttl.Minutes())),
	})
}

func (a *API) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Token and new password are required"})
		return
	}

	err := a.engine.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, authgate.ErrResetTokenInvalid):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid or expired token"})
		case errors.Is(err, authgate.ErrUserNotFound):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "User not found"})
		case errors.Is(err, authgate.ErrPasswordPolicy):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Password does not meet the policy"})
		case errors.Is(err, authgate.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "Service temporarily unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Password reset failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Password reset successful"})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
