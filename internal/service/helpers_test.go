package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"task-planner/internal/model"
	"task-planner/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), zap.NewNop())
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

func newTestAuth(db *gorm.DB) *AuthService {
	return NewAuthService(repository.NewUserRepository(db), bcrypt.MinCost)
}

func mustRegister(t *testing.T, auth *AuthService, username string) *model.User {
	t.Helper()
	user, err := auth.Register(context.Background(), username, "pw-"+username)
	if err != nil {
		t.Fatalf("Register %s: %v", username, err)
	}
	return user
}

var testLoc = time.FixedZone("test", 0)

func at(value string) time.Time {
	tm, err := time.ParseInLocation(DueLayout, value, testLoc)
	if err != nil {
		panic(err)
	}
	return tm
}
