package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lumina-dist/lumina/internal/shared"
)

// UserSource loads the account view for the authenticated session.
type UserSource interface {
	UserByID(ctx context.Context, id int64) (*User, error)
}

// Middleware wires capability gates for HTTP handlers. It loads the session
// user once per request, stores it in context, and evaluates the resolver
// against it.
type Middleware struct {
	Source UserSource
	Logger *slog.Logger
}

// Check is a capability predicate over the current user.
type Check func(*User) bool

// WithUser resolves the session user into the request context without
// enforcing anything. Handlers downstream read it via UserFromContext.
func (m Middleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := m.currentUser(r); u != nil {
			r = r.WithContext(ContextWithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthenticated rejects requests without a logged-in session.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require enforces a capability check for every method.
func (m Middleware) Require(check Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !check(u) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ReadOnlyOr lets any authenticated user through on safe methods and
// enforces the capability on writes.
func (m Middleware) ReadOnlyOr(check Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if !check(u) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUser(r *http.Request) *User {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse user id", slog.String("value", raw))
		}
		return nil
	}
	u, err := m.Source.UserByID(r.Context(), id)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("authz load user", slog.Any("error", err))
		}
		return nil
	}
	return u
}
