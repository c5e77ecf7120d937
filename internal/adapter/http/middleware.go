package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gyanoda/user-service/internal/entity"
	"github.com/gyanoda/user-service/internal/usecase"
	"go.uber.org/zap"
)

// ContextKey is a private key type for request-scoped auth values.
type ContextKey string

const (
	UserIDCtxKey = ContextKey("user_id")
	UserCtxKey   = ContextKey("user")
)

const accessCookieName = "access_token"
const refreshCookieName = "refresh_token"

// AccessVerifier checks an access token and returns the user id it carries.
type AccessVerifier interface {
	VerifyAccess(tokenStr string) (string, error)
}

// AuthMiddleware authenticates requests from the access cookie (or a
// bearer header) and requires a live session snapshot in the cache: a
// valid token whose session was logged out is still rejected.
type AuthMiddleware struct {
	tokens    AccessVerifier
	sessions  usecase.SessionCache
	responder *Responder
	logger    *zap.Logger
}

func NewAuthMiddleware(tokens AccessVerifier, sessions usecase.SessionCache, responder *Responder, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:    tokens,
		sessions:  sessions,
		responder: responder,
		logger:    logger.Named("AuthMiddleware"),
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerOrCookie(r)
		if tokenStr == "" {
			m.responder.Error(w, usecase.ErrUnauthorized)
			return
		}

		userID, err := m.tokens.VerifyAccess(tokenStr)
		if err != nil {
			m.logger.Warn("Rejected access token", zap.Error(err))
			m.responder.Error(w, usecase.ErrUnauthorized)
			return
		}

		snapshot, err := m.sessions.Get(r.Context(), userID)
		if err != nil {
			m.responder.Error(w, err)
			return
		}
		if snapshot == nil {
			m.logger.Warn("No live session for valid access token", zap.String("userID", userID))
			m.responder.Error(w, usecase.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		ctx = context.WithValue(ctx, UserCtxKey, snapshot)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin sits behind Authenticate and checks the cached snapshot's
// role.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(UserCtxKey).(*entity.User)
		if !ok || user.Role != entity.RoleAdmin {
			m.responder.Error(w, usecase.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerOrCookie(r *http.Request) string {
	if c, err := r.Cookie(accessCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDCtxKey).(string)
	return id
}
