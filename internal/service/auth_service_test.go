package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(newTestDB(t))

	user, err := auth.Register(ctx, "  alice ", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username should be trimmed, got %q", user.Username)
	}
	if user.PasswordHash == "pw1" || user.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}

	got, err := auth.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("logged in as %d, want %d", got.ID, user.ID)
	}
}

func TestAuthService_RegisterTwiceRejected(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(newTestDB(t))
	first := mustRegister(t, auth, "alice")

	if _, err := auth.Register(ctx, "alice", "different"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	// the original password still works, so nothing was overwritten
	got, err := auth.Login(ctx, "alice", "pw-alice")
	if err != nil || got.ID != first.ID {
		t.Fatalf("original account changed: %v", err)
	}
}

func TestAuthService_LoginErrorsAreGeneric(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(newTestDB(t))
	mustRegister(t, auth, "alice")

	_, wrongPassword := auth.Login(ctx, "alice", "nope")
	_, unknownUser := auth.Login(ctx, "mallory", "nope")
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("messages must not reveal which field was wrong")
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	auth := newTestAuth(newTestDB(t))
	var verr *ValidationError
	if _, err := auth.Register(context.Background(), "   ", "pw"); !errors.As(err, &verr) || verr.Field != "username" {
		t.Fatalf("expected username validation error, got %v", err)
	}
	if _, err := auth.Register(context.Background(), "bob", ""); !errors.As(err, &verr) || verr.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestAuthService_PasswordTruncatedTo72Bytes(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(newTestDB(t))

	long := strings.Repeat("a", 72)
	if _, err := auth.Register(ctx, "alice", long+"-tail-one"); err != nil {
		t.Fatalf("Register with long password: %v", err)
	}
	if _, err := auth.Login(ctx, "alice", long+"-tail-two"); err != nil {
		t.Fatalf("bytes past 72 must be ignored: %v", err)
	}
	if _, err := auth.Login(ctx, "alice", long[:71]); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("a shorter prefix must not match, got %v", err)
	}
}

func TestAuthService_LinkAndUnlinkEmail(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(newTestDB(t))
	user := mustRegister(t, auth, "alice")

	if err := auth.LinkEmail(ctx, user, "alice@example.com"); err != nil {
		t.Fatalf("LinkEmail: %v", err)
	}
	stored, err := auth.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if stored.Email != "alice@example.com" {
		t.Fatalf("email = %q", stored.Email)
	}

	if err := auth.UnlinkEmail(ctx, user); err != nil {
		t.Fatalf("UnlinkEmail: %v", err)
	}
	stored, _ = auth.UserByID(ctx, user.ID)
	if stored.HasLinkedEmail() || user.HasLinkedEmail() {
		t.Fatalf("email should be cleared")
	}
}
