package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", UseAccess, "secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.UserID != "user-1" || claims.TokenUse != UseAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "taskforge" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", UseAccess, "secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if _, err := Parse(token, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := GenerateToken("user-1", UseAccess, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if _, err := Parse(token, "secret"); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestParseUseEnforcesDiscriminator(t *testing.T) {
	refresh, err := GenerateToken("user-1", UseRefresh, "secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if _, err := ParseUse(refresh, UseAccess, "secret"); !errors.Is(err, ErrWrongTokenUse) {
		t.Fatalf("expected ErrWrongTokenUse, got %v", err)
	}
	if _, err := ParseUse(refresh, UseRefresh, "secret"); err != nil {
		t.Fatalf("matching use rejected: %v", err)
	}
}
