package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"watchshop/backend/internal/domain"
)

type accountSourceStub struct {
	accounts []domain.Account
	err      error
	calls    int
}

func (s *accountSourceStub) ListAccounts(_ context.Context) ([]domain.Account, error) {
	s.calls++
	return s.accounts, s.err
}

func sha256Hex(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func TestAuthManagerAcceptsLegacySHA256Password(t *testing.T) {
	source := &accountSourceStub{accounts: []domain.Account{
		{Username: "123456", PasswordHash: sha256Hex("QL123456"), Role: domain.RoleManager},
	}}
	auth := NewAuthManager("test-secret-key-with-32-characters!", time.Hour, source)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "123456", Password: "QL123456"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != domain.RoleManager {
		t.Fatalf("expected manager role, got %q", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "123456" || actor.Role != domain.RoleManager {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "123456", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthManagerAcceptsBcryptPassword(t *testing.T) {
	source := &accountSourceStub{accounts: []domain.Account{
		{Username: "NV002", PasswordHash: mustHashPassword(t, "employee-pass"), Role: domain.RoleEmployee},
	}}
	auth := NewAuthManager("test-secret-key-with-32-characters!", time.Hour, source)

	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: " NV002 ", Password: "employee-pass"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "nobody", Password: "employee-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestAuthManagerRejectsPlainTextStoredPassword(t *testing.T) {
	source := &accountSourceStub{accounts: []domain.Account{
		{Username: "legacy", PasswordHash: "plain-secret", Role: domain.RoleEmployee},
	}}
	auth := NewAuthManager("test-secret-key-with-32-characters!", time.Hour, source)

	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "legacy", Password: "plain-secret"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected stored plain text to be refused, got %v", err)
	}
}

func TestAuthManagerReadsAccountsOnEveryLogin(t *testing.T) {
	source := &accountSourceStub{}
	auth := NewAuthManager("test-secret-key-with-32-characters!", time.Hour, source)
	req := domain.LoginRequest{Username: "NV003", Password: "fresh-pass"}

	if _, err := auth.Login(context.Background(), req); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected unknown account before it exists, got %v", err)
	}
	source.accounts = append(source.accounts, domain.Account{Username: "NV003", PasswordHash: sha256Hex("fresh-pass"), Role: domain.RoleEmployee})
	if _, err := auth.Login(context.Background(), req); err != nil {
		t.Fatalf("expected new account to log in without restart: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected 2 account reads, got %d", source.calls)
	}
}

func TestAuthManagerPropagatesAccountSourceFailure(t *testing.T) {
	cause := errors.New("database is locked")
	auth := NewAuthManager("test-secret-key-with-32-characters!", time.Hour, &accountSourceStub{err: cause})

	_, err := auth.Login(context.Background(), domain.LoginRequest{Username: "NV001", Password: "x"})
	if !errors.Is(err, cause) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	source := &accountSourceStub{accounts: []domain.Account{
		{Username: "NV001", PasswordHash: sha256Hex("pw"), Role: domain.RoleManager},
	}}
	auth := NewAuthManager("test-secret-key-with-32-characters!", time.Minute, source)
	issued := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "NV001", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	auth.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := auth.ParseToken(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other := NewAuthManager("another-secret-key-with-32-characters", time.Hour, source)
	fresh, err := other.Login(context.Background(), domain.LoginRequest{Username: "NV001", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	auth.now = time.Now
	if _, err := auth.ParseToken(fresh.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token signed with another secret to be rejected, got %v", err)
	}

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{"sub": "NV001", "role": domain.RoleManager})
	raw, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := auth.ParseToken(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg=none token to be rejected, got %v", err)
	}
}
