package chi

import (
	"context"
	"net/http"
	"strings"
)

// Role is the caller's role as configured for its API key.
type Role string

const (
	// RoleCandidate is a job seeker indexing and matching their own profile.
	RoleCandidate Role = "candidate"
	// RoleEmployer is a job owner querying candidates for their jobs.
	RoleEmployer Role = "employer"
	// RoleAdmin bypasses ownership checks.
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller identity resolved from its API key.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal bypasses ownership checks.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type principalCtxKey struct{}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// KeyResolver maps a presented API key to a principal.
type KeyResolver func(apiKey string) (Principal, bool)

// StaticKeys builds a KeyResolver over a fixed key-to-principal table.
func StaticKeys(principals map[string]Principal) KeyResolver {
	return func(apiKey string) (Principal, bool) {
		p, ok := principals[apiKey]
		return p, ok
	}
}

// BearerAuthMiddleware validates Bearer tokens and stores the resolved
// principal in the request context. A nil resolver disables authentication.
func BearerAuthMiddleware(resolve KeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Auth disabled - pass everything through
		if resolve == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			principal, ok := resolve(auth[len(bearerPrefix):])
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), principalCtxKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
