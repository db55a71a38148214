package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"task-planner/internal/model"
	"task-planner/internal/repository"
)

// maxPasswordBytes is bcrypt's input limit. Passwords are cut to this many bytes
// both when hashing and when verifying, so longer inputs still round-trip.
const maxPasswordBytes = 72

// AuthService registers users and checks their credentials.
type AuthService struct {
	users *repository.UserRepository
	cost  int
}

func NewAuthService(users *repository.UserRepository, cost int) *AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, cost: cost}
}

// Register creates a user. The username is trimmed; the password is used as typed.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "El nombre de usuario es obligatorio")
	}
	if password == "" {
		return nil, invalid("password", "La contraseña es obligatoria")
	}

	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// Login returns the user for valid credentials. Unknown users and wrong passwords
// both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UserByID resolves a session's user.
func (s *AuthService) UserByID(ctx context.Context, id uint) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}

// LinkEmail stores the email claimed by the identity provider. Another user may
// hold the same address; no uniqueness is enforced.
func (s *AuthService) LinkEmail(ctx context.Context, user *model.User, email string) error {
	if err := s.users.SetEmail(ctx, user.ID, email); err != nil {
		return err
	}
	user.Email = email
	return nil
}

func (s *AuthService) UnlinkEmail(ctx context.Context, user *model.User) error {
	return s.LinkEmail(ctx, user, "")
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password)) == nil
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
