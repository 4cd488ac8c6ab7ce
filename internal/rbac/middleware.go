package rbac

import (
	"log/slog"
	"net/http"

	"github.com/leajer/leajer/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers. The role
// is read from the session in context; anonymous requests fail closed.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current session holds at least one of the
// required permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			role, ok := m.currentRole(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if HasAnyPermission(role, perms...) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the current session holds all required permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			role, ok := m.currentRole(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if HasAllPermissions(role, perms...) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) currentRole(r *http.Request) (Role, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", false
	}
	ident := sess.Identity()
	if ident == nil {
		return "", false
	}
	role, ok := ParseRole(ident.Role)
	if !ok {
		if m.Logger != nil {
			m.Logger.Warn("session carries unknown role", slog.String("role", ident.Role))
		}
		return "", false
	}
	return role, true
}
