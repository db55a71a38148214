package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"task-planner/internal/model"
	"task-planner/internal/repository"
)

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionService issues and resolves session cookies. The cookie holds a signed
// token naming a server-side session; the session itself lives in the store.
type SessionService struct {
	store  repository.SessionStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(store repository.SessionStore, secret string, ttl time.Duration) *SessionService {
	return &SessionService{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of new sessions, used for the cookie max-age.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Start creates a session for userID and returns its signed cookie value.
func (s *SessionService) Start(ctx context.Context, userID uint) (string, *model.Session, error) {
	now := s.now()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return "", nil, err
	}

	claims := sessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return token, session, nil
}

// Resolve verifies the cookie value and loads its live session. Any failure is ErrNoSession.
func (s *SessionService) Resolve(ctx context.Context, token string) (*model.Session, error) {
	id, err := s.parse(token)
	if err != nil {
		return nil, ErrNoSession
	}

	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, ErrNoSession
	}
	return session, nil
}

// End deletes the session behind token. Unknown tokens are ignored.
func (s *SessionService) End(ctx context.Context, token string) error {
	id, err := s.parse(token)
	if err != nil {
		return nil
	}
	return s.store.Delete(ctx, id)
}

// SetOAuthState remembers the state parameter of a pending provider redirect.
func (s *SessionService) SetOAuthState(ctx context.Context, session *model.Session, state string) error {
	session.OAuthState = state
	return s.store.Update(ctx, session)
}

// ConsumeOAuthState checks state against the pending one and clears it.
func (s *SessionService) ConsumeOAuthState(ctx context.Context, session *model.Session, state string) error {
	expected := session.OAuthState
	if expected == "" || state != expected {
		return ErrOAuthState
	}
	session.OAuthState = ""
	return s.store.Update(ctx, session)
}

// PurgeExpired removes sessions past their expiry.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

func (s *SessionService) parse(token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.SessionID == "" {
		return "", ErrNoSession
	}
	return claims.SessionID, nil
}
