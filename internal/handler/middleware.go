package handler

import (
	"context"
	"net/http"
	"strings"

	"civiceye/internal/model"
	"civiceye/internal/service"
	"civiceye/internal/util"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	userContextKey    contextKey = "user"

	sessionCookieName = "session_token"
)

// extractToken pulls the session token from the Authorization header or
// the session cookie, in that order.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware resolves the session token and re-checks the ban policy
// on every request. A freshly banned user gets a 403 here and all their
// sessions are already gone by the time the response is written.
func AuthMiddleware(userService *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, user, err := userService.Authenticate(r.Context(), extractToken(r))
			if err != nil {
				respondWithError(w, getStatusCode(err), err, "Authentication failed")
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a subtree to the given roles. Must run after
// AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFrom(r.Context())
			if session == nil || !allowed[session.Role] {
				respondWithError(w, http.StatusForbidden, service.ErrPermissionDenied, "Insufficient role")
				if session != nil {
					util.Warn("Role check failed",
						util.String("username", session.Username),
						util.String("role", session.Role),
						util.String("path", r.URL.Path))
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFrom(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

func userFrom(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}
