package services

import (
	"context"
	"errors"
	"testing"

	"github.com/wfunc/sololeveling/models"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.svc.Auth.Register(ctx, " Jinwoo@Example.com ", "arise123", "Sung Jinwoo")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Token == "" || reg.User.Email != "jinwoo@example.com" {
		t.Fatalf("Unexpected registration: %+v", reg)
	}
	if n := env.count(t, &models.Player{}, "user_id = ?", reg.User.ID); n != 1 {
		t.Fatalf("Registration should create the player, got %d rows", n)
	}

	if _, err := env.svc.Auth.Register(ctx, "jinwoo@example.com", "another1", "Copycat"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("Expected ErrEmailTaken, got %v", err)
	}

	login, err := env.svc.Auth.Login(ctx, "JINWOO@example.com", "arise123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, err := env.svc.Auth.Authenticate(login.Token)
	if err != nil || id.UserID != reg.User.ID {
		t.Fatalf("Authenticate: %+v %v", id, err)
	}

	if _, err := env.svc.Auth.Login(ctx, "jinwoo@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.svc.Auth.Login(ctx, "nobody@example.com", "arise123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := env.svc.Auth.Authenticate("garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Auth.Register(context.Background(), "not-an-email", "123", "J")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, is := range verr.Issues {
		fields[is.Field] = true
	}
	if !fields["email"] || !fields["password"] || !fields["displayName"] {
		t.Fatalf("Expected issues for every field, got %+v", verr.Issues)
	}
}
