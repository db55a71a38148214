package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-planner/internal/repository"
)

func newTestSessions(t *testing.T) *SessionService {
	t.Helper()
	return NewSessionService(repository.NewSessionRepository(newTestDB(t)), "test-secret", time.Hour)
}

func TestSessionService_StartResolveEnd(t *testing.T) {
	ctx := context.Background()
	sessions := newTestSessions(t)

	token, started, err := sessions.Start(ctx, 7)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got, err := sessions.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != started.ID || got.UserID != 7 {
		t.Fatalf("resolved %+v, want session %s of user 7", got, started.ID)
	}

	if err := sessions.End(ctx, token); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := sessions.Resolve(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after End, got %v", err)
	}
}

func TestSessionService_RejectsForeignOrTamperedTokens(t *testing.T) {
	ctx := context.Background()
	sessions := newTestSessions(t)
	token, _, err := sessions.Start(ctx, 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	other := NewSessionService(sessions.store, "another-secret", time.Hour)
	if _, err := other.Resolve(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("token signed with another secret must not resolve, got %v", err)
	}
	for _, bad := range []string{"", "garbage", token + "x"} {
		if _, err := sessions.Resolve(ctx, bad); !errors.Is(err, ErrNoSession) {
			t.Fatalf("Resolve(%q) = %v, want ErrNoSession", bad, err)
		}
	}
	if err := sessions.End(ctx, "garbage"); err != nil {
		t.Fatalf("End with garbage token should be ignored: %v", err)
	}
}

func TestSessionService_ExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	sessions := newTestSessions(t)
	base := time.Now()
	sessions.now = func() time.Time { return base }

	token, _, err := sessions.Start(ctx, 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sessions.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := sessions.Resolve(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected expired session to be rejected, got %v", err)
	}
	n, err := sessions.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
}

func TestSessionService_OAuthState(t *testing.T) {
	ctx := context.Background()
	sessions := newTestSessions(t)
	token, session, err := sessions.Start(ctx, 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sessions.ConsumeOAuthState(ctx, session, ""); !errors.Is(err, ErrOAuthState) {
		t.Fatalf("no pending state must fail, got %v", err)
	}
	if err := sessions.SetOAuthState(ctx, session, "abc"); err != nil {
		t.Fatalf("SetOAuthState: %v", err)
	}

	reloaded, err := sessions.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := sessions.ConsumeOAuthState(ctx, reloaded, "other"); !errors.Is(err, ErrOAuthState) {
		t.Fatalf("mismatching state must fail, got %v", err)
	}
	if err := sessions.ConsumeOAuthState(ctx, reloaded, "abc"); err != nil {
		t.Fatalf("ConsumeOAuthState: %v", err)
	}

	reloaded, _ = sessions.Resolve(ctx, token)
	if err := sessions.ConsumeOAuthState(ctx, reloaded, "abc"); !errors.Is(err, ErrOAuthState) {
		t.Fatalf("state must be single use, got %v", err)
	}
}
