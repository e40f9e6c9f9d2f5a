package authgate

import "context"

// UserRecord is the engine's view of an account. Storage, validation and
// everything else about users belongs to the [UserProvider] implementation.
type UserRecord struct {
	UserID       string
	Email        string
	FullName     string
	PasswordHash string
}

// CreateUserInput carries the fields for a new account. The password is
// already hashed by the time the provider sees it.
type CreateUserInput struct {
	Email        string
	FullName     string
	PasswordHash string
}

// UserProvider is the caller-supplied account store.
//
// Implementations must return [ErrUserNotFound] when a lookup misses and
// [ErrAccountExists] when CreateUser collides on email.
type UserProvider interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// TokenPair is the bearer credentials returned by login and registration.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionIssuer mints the token pair for an authenticated user. The default
// implementation signs JWTs; deployments with their own token service can
// substitute it on the builder.
type SessionIssuer interface {
	IssueSession(user UserRecord) (TokenPair, error)
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User   UserRecord
	Tokens TokenPair
}

// RegisterRequest carries the inputs to Register. Field validation beyond
// password hashing policy is the caller's concern.
type RegisterRequest struct {
	Email    string
	FullName string
	Password string
}

// RegisterResult is the outcome of a successful registration.
type RegisterResult struct {
	User   UserRecord
	Tokens TokenPair
}
