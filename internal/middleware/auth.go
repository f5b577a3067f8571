package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/otabek-olimov/uzshop-backend/internal/auth"
)

// SessionReader resolves a session ID to the owning user ID.
// Returns "" when the session does not exist or has expired.
type SessionReader interface {
	Get(ctx context.Context, sessionID string) (string, error)
}

type ctxKey int

const (
	userIDKey ctxKey = iota
	sessionIDKey
)

// WithIdentity binds the authenticated user and their session to the context.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// UserID returns the authenticated user ID, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}

// SessionID returns the session ID the request authenticated with.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

// RequireAuth validates the session cookie and injects the identity into the
// request context. Owner-only routes sit behind it: unauthenticated requests
// are redirected to the login page with the original path as `next`.
func RequireAuth(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil {
				redirectToLogin(w, r)
				return
			}

			userID, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil || userID == "" {
				redirectToLogin(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), userID, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/user/login/?next=" + url.QueryEscape(r.URL.Path)
	http.Redirect(w, r, target, http.StatusFound)
}
