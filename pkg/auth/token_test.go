package authentication

import (
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	secret := []byte("local-secret")
	now := time.Now()

	tok, err := Sign(secret, "user-1", "a@b.co", time.Hour, now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := Verify(secret, tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID() != "user-1" || claims.Email != "a@b.co" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if !claims.ExpiresWithin(now, 2*time.Hour) {
		t.Fatal("token should expire within two hours")
	}
	if claims.ExpiresWithin(now, time.Minute) {
		t.Fatal("token should not expire within a minute")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, _ := Sign([]byte("a"), "user-1", "", time.Hour, time.Now())
	if _, err := Verify([]byte("b"), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseUnverifiedReadsSubject(t *testing.T) {
	tok, _ := Sign([]byte("server-side"), "user-9", "", time.Minute, time.Now())
	claims, err := ParseUnverified(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID() != "user-9" {
		t.Fatalf("subject = %q", claims.UserID())
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("got %q %v", tok, ok)
	}
	if _, ok := BearerToken("Basic abc"); ok {
		t.Fatal("basic header accepted as bearer")
	}
	if _, ok := BearerToken("Bearer "); ok {
		t.Fatal("empty token accepted")
	}
}
