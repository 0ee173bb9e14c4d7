package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("test-secret", 42, "STAFF", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("parse signed token: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
		t.Errorf("sub = %v, want 42", claims["sub"])
	}
	if role, _ := claims["role"].(string); role != "STAFF" {
		t.Errorf("role = %v, want STAFF", claims["role"])
	}
	if until := time.Until(at.Exp); until < 14*time.Minute || until > 16*time.Minute {
		t.Errorf("expiry %s not ~15m out", until)
	}
}

func TestNewAccessTokenWrongSecretRejected(t *testing.T) {
	at, err := NewAccessToken("right", 1, "USER", 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("wrong"), nil
	})
	if err == nil && tok.Valid {
		t.Error("token validated with wrong secret")
	}
}

func TestNewRefreshToken(t *testing.T) {
	r1, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if len(r1.Raw) != 96 {
		t.Errorf("raw length = %d, want 96 hex chars", len(r1.Raw))
	}
	r2, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if r1.Raw == r2.Raw {
		t.Error("two refresh tokens are identical")
	}
}

func TestHashRefreshRawDeterministic(t *testing.T) {
	if HashRefreshRaw("abc") != HashRefreshRaw("abc") {
		t.Error("hash is not deterministic")
	}
	if HashRefreshRaw("abc") == HashRefreshRaw("abd") {
		t.Error("distinct inputs produced the same hash")
	}
	if got := len(HashRefreshRaw("abc")); got != 64 {
		t.Errorf("hash length = %d, want 64", got)
	}
}
