package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/energy-advisor/internal/model"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the session value.
type contextKey string

const sessionKey contextKey = "session"

// Paths the gate redirects to.
const (
	LoginPath          = "/login"
	ChangePasswordPath = "/account/password"
)

// SessionResolver turns a raw cookie value into a live session.
// It returns an error for anything that is not a valid, unexpired session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*model.Session, error)
}

// LoadSession reads the session cookie, resolves it, and stores the session
// in the request context. It never blocks the request: an absent or invalid
// cookie just means the request is anonymous.
func LoadSession(cookieName string, sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				if sess, err := sessions.Resolve(r.Context(), c.Value); err == nil {
					r = r.WithContext(WithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession redirects anonymous requests to the login page, preserving
// the intended destination in ?next=.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePasswordCurrent blocks sessions whose user must change their
// password, sending them to the change-password page instead. Mount it after
// RequireSession on every protected route except change-password itself.
func RequirePasswordCurrent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := SessionFromContext(r.Context()); ok && sess.MustChangePassword {
			http.Redirect(w, r, ChangePasswordPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the request's session, or (nil, false) if the
// request is anonymous.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*model.Session)
	return sess, ok && sess != nil
}

// LoginURL builds /login?next=<dest>, dropping dest if it is not a safe
// local path.
func LoginURL(dest string) string {
	if !SafeRedirect(dest) {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(dest)
}

// SafeRedirect reports whether dest is a same-origin path. Protocol-relative
// ("//evil.example") and backslash tricks are rejected.
func SafeRedirect(dest string) bool {
	return strings.HasPrefix(dest, "/") &&
		!strings.HasPrefix(dest, "//") &&
		!strings.HasPrefix(dest, "/\\") &&
		!strings.ContainsAny(dest, "\r\n")
}
