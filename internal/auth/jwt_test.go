package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 15*time.Minute, 24*time.Hour)
	userID := uuid.New()
	now := time.Now()

	pair, err := issuer.Issue(userID, "user", now)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	claims, err := issuer.Verify(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Fatalf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Role != "user" {
		t.Fatalf("expected role user, got %s", claims.Role)
	}

	if _, err := issuer.Verify(pair.RefreshToken, TokenTypeRefresh); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 15*time.Minute, 24*time.Hour)
	pair, err := issuer.Issue(uuid.New(), "user", time.Now())
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := issuer.Verify(pair.RefreshToken, TokenTypeAccess); err == nil {
		t.Fatalf("expected refresh token rejected as access")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 15*time.Minute, 24*time.Hour)
	other := NewTokenIssuer("other-secret", 15*time.Minute, 24*time.Hour)
	pair, err := issuer.Issue(uuid.New(), "user", time.Now())
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := other.Verify(pair.AccessToken, TokenTypeAccess); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute, time.Minute)
	pair, err := issuer.Issue(uuid.New(), "user", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := issuer.Verify(pair.AccessToken, TokenTypeAccess); err == nil {
		t.Fatalf("expected expired token rejected")
	}
}
