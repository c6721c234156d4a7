package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrInvalidSession  = errors.New("invalid session")
	ErrUserNotFound    = errors.New("user not found")
)

// Service resolves raw session tokens to authenticated users.
type Service interface {
	// Authenticate looks up the session for rawToken and returns its user.
	// Expired and revoked sessions are rejected.
	Authenticate(ctx context.Context, rawToken string) (*User, error)
}

// Repository provides session and user lookups.
type Repository interface {
	FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	FindUserByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, at time.Time) error
}
