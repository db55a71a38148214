package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"task-planner/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), zap.NewNop())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func createUser(t *testing.T, repo *UserRepository, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "hash"}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create user %s: %v", username, err)
	}
	return user
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	createUser(t, repo, "alice")

	err := repo.Create(context.Background(), &model.User{Username: "alice", PasswordHash: "other"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// usernames are case-sensitive
	createUser(t, repo, "Alice")
}

func TestUserRepository_SetEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	user := createUser(t, repo, "alice")

	if err := repo.SetEmail(ctx, user.ID, "alice@example.com"); err != nil {
		t.Fatalf("SetEmail: %v", err)
	}
	got, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Fatalf("email = %q", got.Email)
	}

	if err := repo.SetEmail(ctx, user.ID, ""); err != nil {
		t.Fatalf("SetEmail clear: %v", err)
	}
	got, _ = repo.FindByID(ctx, user.ID)
	if got.HasLinkedEmail() {
		t.Fatalf("email should be cleared, got %q", got.Email)
	}

	if _, err := repo.FindByUsername(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	tasks := NewTaskRepository(db)
	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	task := &model.Task{UserID: alice.ID, Description: "Buy milk", DueAt: time.Now(), Weekday: "Lunes"}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := tasks.FindOwned(ctx, bob.ID, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob should not see alice's task, got %v", err)
	}
	if err := tasks.UpdateOwned(ctx, bob.ID, task.ID, map[string]interface{}{"description": "hacked"}); err != nil {
		t.Fatalf("UpdateOwned: %v", err)
	}
	if err := tasks.DeleteOwned(ctx, bob.ID, task.ID); err != nil {
		t.Fatalf("DeleteOwned: %v", err)
	}
	if err := tasks.MarkNotified(ctx, bob.ID, task.ID); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	got, err := tasks.FindOwned(ctx, alice.ID, task.ID)
	if err != nil {
		t.Fatalf("FindOwned: %v", err)
	}
	if got.Description != "Buy milk" || got.Notified {
		t.Fatalf("task changed by another user: %+v", got)
	}

	if list, _ := tasks.ListByUser(ctx, bob.ID); len(list) != 0 {
		t.Fatalf("bob should have no tasks, got %d", len(list))
	}
}

func TestTaskRepository_UpdateAfterDeleteDoesNotResurrect(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, NewUserRepository(db), "alice")
	tasks := NewTaskRepository(db)

	task := &model.Task{UserID: alice.ID, Description: "x", DueAt: time.Now(), Weekday: "Martes"}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := tasks.DeleteOwned(ctx, alice.ID, task.ID); err != nil {
		t.Fatalf("DeleteOwned: %v", err)
	}
	if err := tasks.UpdateOwned(ctx, alice.ID, task.ID, map[string]interface{}{"description": "y"}); err != nil {
		t.Fatalf("UpdateOwned: %v", err)
	}
	if _, err := tasks.FindOwned(ctx, alice.ID, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected task to stay deleted, got %v", err)
	}
}

func TestTaskRepository_ListUnnotified(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, NewUserRepository(db), "alice")
	tasks := NewTaskRepository(db)

	now := time.Now()
	first := &model.Task{UserID: alice.ID, Description: "a", DueAt: now, Weekday: "Lunes"}
	second := &model.Task{UserID: alice.ID, Description: "b", DueAt: now.Add(time.Hour), Weekday: "Lunes"}
	for _, task := range []*model.Task{first, second} {
		if err := tasks.Create(ctx, task); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := tasks.MarkNotified(ctx, alice.ID, first.ID); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	list, err := tasks.ListUnnotified(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListUnnotified: %v", err)
	}
	if len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("unexpected unnotified tasks: %+v", list)
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestDB(t))
	now := time.Now()

	live := &model.Session{ID: "live", UserID: 1, ExpiresAt: now.Add(time.Hour)}
	stale := &model.Session{ID: "stale", UserID: 1, ExpiresAt: now.Add(-time.Hour)}
	for _, s := range []*model.Session{live, stale} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	live.OAuthState = "state-1"
	if err := repo.Update(ctx, live); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.Get(ctx, "live")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OAuthState != "state-1" {
		t.Fatalf("oauth state = %q", got.OAuthState)
	}

	n, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d sessions, want 1", n)
	}
	if _, err := repo.Get(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale session gone, got %v", err)
	}

	if err := repo.Delete(ctx, "live"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "live"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected live session gone, got %v", err)
	}
}
