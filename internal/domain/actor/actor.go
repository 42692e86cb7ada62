package actor

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayledger/internal/domain/ledger"
)

var (
	ErrActorNotFound   = errors.New("actor: not found")
	ErrEmailRequired   = errors.New("actor: email required")
	ErrEmailTaken      = errors.New("actor: email already registered")
	ErrSessionNotFound = errors.New("actor: session not found")
	ErrSessionExpired  = errors.New("actor: session expired")
)

type ActorID string

// Actor is any wallet-holding identity: guest, host or the platform admin.
type Actor struct {
	ID           ActorID
	Email        string
	Name         string
	Role         ledger.Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ActorID) (*Actor, error)
	ByEmail(ctx context.Context, email string) (*Actor, error)
	Save(ctx context.Context, a *Actor) error
}

// Session binds a bearer token to an actor until it expires.
type Session struct {
	Token     string
	ActorID   ActorID
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.UTC().Before(s.ExpiresAt)
}

type SessionStore interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
