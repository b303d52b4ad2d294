package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestTokenIssuer_IssueVerify(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.Issue("user-1", "jinwoo@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != "user-1" || id.Email != "jinwoo@example.com" {
		t.Fatalf("Unexpected identity: %+v", id)
	}
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	start := time.Now()
	issuer := NewTokenIssuer("secret", time.Hour).WithClock(func() time.Time { return start })
	token, err := issuer.Issue("user-1", "a@b.c")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	issuer.WithClock(func() time.Time { return start.Add(2 * time.Hour) })
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenIssuer_RejectsForeignSecret(t *testing.T) {
	token, _ := NewTokenIssuer("one", time.Hour).Issue("user-1", "a@b.c")
	if _, err := NewTokenIssuer("two", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken, got %v", err)
	}
	if _, err := NewTokenIssuer("one", time.Hour).Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("arise123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Compare(hash, "arise123") {
		t.Error("Expected matching password to compare equal")
	}
	if h.Compare(hash, "wrong") {
		t.Error("Expected wrong password to fail")
	}
}
