package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/session"
)

type contextKey string

const UserIDKey contextKey = "userID"
const SessionIDKey contextKey = "sessionID"
const TokenKey contextKey = "token"

// SessionResolver turns a bearer token into the live session behind it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
}

// AuthMiddleware validates the bearer token and puts the session's user id
// into the request context.
func AuthMiddleware(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
				return
			}

			sess, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, apperr.ErrUnauthorized) {
					log.Printf("AuthMiddleware: session lookup failed: %v", err)
					respondWithError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				log.Printf("Token verification failed: %v", err)
				respondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, sess.UserID)
			ctx = context.WithValue(ctx, SessionIDKey, sess.ID)
			ctx = context.WithValue(ctx, TokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns ctx carrying userID the way AuthMiddleware stores it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the authenticated user id from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetToken returns the bearer token the request was authenticated with.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
