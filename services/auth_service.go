package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/session"
	"dailyDuoAPI/internal/types/user"
)

// AuthService ties logins to sessions. A session stores only the user id, so
// every lookup returns the user as it is stored now.
type AuthService struct {
	users    *UserService
	sessions *session.Manager
}

func NewAuthService(users *UserService, sessions *session.Manager) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

func (s *AuthService) startSession(ctx context.Context, u *user.User) (*user.LoginResponse, error) {
	token, sess, err := s.sessions.Start(ctx, u.ID)
	if err != nil {
		log.Printf("AuthService: failed to start session for %s: %v", u.ID, err)
		return nil, err
	}
	return &user.LoginResponse{Token: token, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Register creates the user and logs them in.
func (s *AuthService) Register(ctx context.Context, req *user.CreateUserRequest) (*user.LoginResponse, error) {
	u, err := s.users.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, u)
}

func (s *AuthService) Login(ctx context.Context, req *user.LoginRequest) (*user.LoginResponse, error) {
	u, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", apperr.ErrUnauthorized)
		}
		return nil, err
	}
	if err := s.users.checkPassword(ctx, u.ID, req.Password); err != nil {
		log.Printf("Login: rejected password for %s", u.ID)
		return nil, err
	}
	return s.startSession(ctx, u)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.End(ctx, token)
}

// Resolve returns the session behind a bearer token.
func (s *AuthService) Resolve(ctx context.Context, token string) (*session.Session, error) {
	return s.sessions.Resolve(ctx, token)
}

// CurrentUser re-reads the session's user from the identity store.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*user.User, error) {
	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: session user no longer exists", apperr.ErrUnauthorized)
		}
		return nil, err
	}
	return u, nil
}
