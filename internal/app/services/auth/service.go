package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainactor "stayledger/internal/domain/actor"
	domainledger "stayledger/internal/domain/ledger"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrNotConfigured      = errors.New("auth: service missing dependencies")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// Service issues and resolves session tokens. The resolved actor id is
// the identity every ledger operation trusts.
type Service struct {
	Actors     domainactor.Repository
	Sessions   domainactor.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
	AsHost   bool
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	Actor *domainactor.Actor
	Token string
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainactor.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainactor.ErrEmailRequired
	}
	if len(params.Password) < 8 {
		return nil, ErrPasswordTooShort
	}
	if _, err := s.Actors.ByEmail(ctx, email); err == nil {
		return nil, domainactor.ErrEmailTaken
	} else if !errors.Is(err, domainactor.ErrActorNotFound) {
		return nil, err
	}

	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	role := domainledger.RoleGuest
	if params.AsHost {
		role = domainledger.RoleHost
	}
	now := time.Now().UTC()
	a := &domainactor.Actor{
		ID:           domainactor.ActorID(uuid.NewString()),
		Email:        email,
		Name:         strings.TrimSpace(params.Name),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Actors.Save(ctx, a); err != nil {
		return nil, err
	}
	return s.startSession(ctx, a, now)
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainactor.NormalizeEmail(params.Email)
	a, err := s.Actors.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainactor.ErrActorNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(a.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, a, time.Now().UTC())
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if s.Sessions == nil {
		return ErrNotConfigured
	}
	return s.Sessions.Delete(ctx, token)
}

// ResolveToken maps a bearer token to its actor, expiring stale sessions
// lazily.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domainactor.Actor, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	session, err := s.Sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now().UTC()) {
		_ = s.Sessions.Delete(ctx, token)
		return nil, domainactor.ErrSessionExpired
	}
	return s.Actors.ByID(ctx, session.ActorID)
}

func (s *Service) startSession(ctx context.Context, a *domainactor.Actor, now time.Time) (*AuthResult, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return nil, err
	}
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	session := domainactor.Session{
		Token:     token,
		ActorID:   a.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.Sessions.Put(ctx, session); err != nil {
		return nil, err
	}
	return &AuthResult{Actor: a, Token: token}, nil
}

func (s *Service) ensureDependencies() error {
	if s.Actors == nil || s.Sessions == nil || s.Passwords == nil || s.Tokens == nil {
		return ErrNotConfigured
	}
	return nil
}
