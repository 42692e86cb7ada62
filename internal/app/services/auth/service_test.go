package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domainactor "stayledger/internal/domain/actor"
	domainledger "stayledger/internal/domain/ledger"
	"stayledger/internal/infra/security"
	"stayledger/internal/infra/storage/memory"
)

func newService(ttl time.Duration) *Service {
	return &Service{
		Actors:     memory.NewActorRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: ttl,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(0)

	res, err := svc.Register(ctx, RegisterParams{
		Email:    "Ana@Example.com",
		Name:     "  Ana  ",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Token == "" {
		t.Fatal("no session token issued")
	}
	if res.Actor.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %q", res.Actor.Email)
	}
	if res.Actor.Name != "Ana" {
		t.Fatalf("name not trimmed: %q", res.Actor.Name)
	}
	if res.Actor.Role != domainledger.RoleGuest {
		t.Fatalf("role = %s, want GUEST", res.Actor.Role)
	}
	if res.Actor.PasswordHash == "correct-horse" {
		t.Fatal("password stored in the clear")
	}

	login, err := svc.Login(ctx, LoginParams{Email: "ANA@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Actor.ID != res.Actor.ID {
		t.Fatal("login resolved a different actor")
	}

	if _, err := svc.Login(ctx, LoginParams{Email: "ana@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "nobody@example.com", Password: "whatever"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(0)

	if _, err := svc.Register(ctx, RegisterParams{Email: "", Password: "long-enough"}); !errors.Is(err, domainactor.ErrEmailRequired) {
		t.Fatalf("blank email: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.com", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password: %v", err)
	}

	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.com", Password: "long-enough"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "A@B.com", Password: "long-enough"}); !errors.Is(err, domainactor.ErrEmailTaken) {
		t.Fatalf("duplicate email: %v", err)
	}
}

func TestRegisterAsHost(t *testing.T) {
	svc := newService(0)
	res, err := svc.Register(context.Background(), RegisterParams{
		Email:    "host@example.com",
		Password: "long-enough",
		AsHost:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Actor.Role != domainledger.RoleHost {
		t.Fatalf("role = %s, want HOST", res.Actor.Role)
	}
}

func TestResolveTokenAndLogout(t *testing.T) {
	ctx := context.Background()
	svc := newService(time.Hour)

	res, err := svc.Register(ctx, RegisterParams{Email: "a@b.com", Password: "long-enough"})
	if err != nil {
		t.Fatal(err)
	}

	actor, err := svc.ResolveToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if actor.ID != res.Actor.ID {
		t.Fatal("token resolved a different actor")
	}

	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, res.Token); err == nil {
		t.Fatal("token survived logout")
	}
}

func TestResolveTokenExpiresLazily(t *testing.T) {
	ctx := context.Background()
	svc := newService(time.Hour)

	res, err := svc.Register(ctx, RegisterParams{Email: "a@b.com", Password: "long-enough"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Sessions.Put(ctx, domainactor.Session{
		Token:     "stale-token",
		ActorID:   res.Actor.ID,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ResolveToken(ctx, "stale-token"); !errors.Is(err, domainactor.ErrSessionExpired) {
		t.Fatalf("expired session: %v", err)
	}
	// The expired session is deleted on first touch.
	if _, err := svc.ResolveToken(ctx, "stale-token"); !errors.Is(err, domainactor.ErrSessionNotFound) {
		t.Fatalf("stale session not purged: %v", err)
	}
}
