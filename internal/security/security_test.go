package security

import (
	"errors"
	"testing"
	"time"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, expiresAt, err := IssueAdminToken("secret", "owner", time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.After(now) {
		t.Fatalf("expected expiry in the future")
	}
	claims, errParse := ParseAdminToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.Username != "owner" {
		t.Fatalf("expected owner, got %q", claims.Username)
	}
}

func TestParseAdminTokenRejectsWrongSecretAndExpired(t *testing.T) {
	token, _, err := IssueAdminToken("secret", "owner", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseAdminToken("other", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", errParse)
	}

	expired, _, err := IssueAdminToken("secret", "owner", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, errParse := ParseAdminToken("secret", expired); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", errParse)
	}
}

func TestCheckAdminCredentials(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckAdminCredentials("owner", hash, "owner", "hunter2") {
		t.Fatalf("expected valid credentials")
	}
	if CheckAdminCredentials("owner", hash, "owner", "wrong") {
		t.Fatalf("expected wrong password rejected")
	}
	if CheckAdminCredentials("owner", hash, "intruder", "hunter2") {
		t.Fatalf("expected wrong username rejected")
	}
}
