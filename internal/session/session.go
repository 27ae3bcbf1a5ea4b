// Package session keeps the server-side half of a login. A session holds only
// the user id; the User itself is re-read on every request.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dailyDuoAPI/internal/apperr"
)

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists sessions until they expire or are deleted. Get returns
// apperr.ErrUnauthorized for unknown or expired ids.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

const issuer = "dailyduo"

// Manager issues signed bearer tokens that point at a stored session.
// The token's jti is the session id, so logging out invalidates the token
// even before it expires.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Start opens a session for userID and returns its signed token.
func (m *Manager) Start(ctx context.Context, userID string) (string, *Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return "", nil, fmt.Errorf("failed to save session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, s, nil
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", apperr.ErrUnauthorized)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUnauthorized, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: token has no session", apperr.ErrUnauthorized)
	}
	return claims, nil
}

// Resolve verifies the token and returns the live session behind it.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if s.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: session subject mismatch", apperr.ErrUnauthorized)
	}
	return s, nil
}

// End deletes the session behind token. Ending an unknown session is not an
// error.
func (m *Manager) End(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, claims.ID); err != nil && !errors.Is(err, apperr.ErrUnauthorized) {
		return err
	}
	return nil
}
