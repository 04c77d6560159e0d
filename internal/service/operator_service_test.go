package service

import (
	"context"
	"errors"
	"testing"
)

func TestOperatorRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewOperatorService(newMemoryOperators(), "garden-secret")

	if _, err := svc.Register(ctx, "gardener", "short", "garden-secret"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
	if _, err := svc.Register(ctx, "gardener", "long-enough", "wrong"); !errors.Is(err, ErrInvalidRegistrationPassword) {
		t.Fatalf("expected ErrInvalidRegistrationPassword, got %v", err)
	}

	op, err := svc.Register(ctx, " gardener ", "long-enough", "garden-secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if op.Username != "gardener" || op.PasswordHash != "" {
		t.Fatalf("register should return a sanitized operator, got %+v", op)
	}
	if _, err := svc.Register(ctx, "gardener", "long-enough", "garden-secret"); !errors.Is(err, ErrOperatorAlreadyExists) {
		t.Fatalf("expected ErrOperatorAlreadyExists, got %v", err)
	}

	authed, err := svc.Authenticate(ctx, "gardener", "long-enough")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if authed.ID != op.ID {
		t.Fatalf("unexpected operator %+v", authed)
	}
	if _, err := svc.Authenticate(ctx, "gardener", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "long-enough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestOperatorRegisterWithoutSecret(t *testing.T) {
	svc := NewOperatorService(newMemoryOperators(), "")
	if _, err := svc.Register(context.Background(), "gardener", "long-enough", ""); err == nil {
		t.Fatal("expected error when registration secret is not configured")
	}
}
