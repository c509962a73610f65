package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/model"
)

// RequireScope admits principals holding any of the given scopes. It runs
// after Auth; a request that reaches it unauthenticated gets 401.
func RequireScope(anyOf ...string) func(http.Handler) http.Handler {
	msg := "Insufficient permissions. Required scope: " + strings.Join(anyOf, " or ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.AuthFromContext(r.Context())
			switch {
			case principal == nil:
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			case slices.ContainsFunc(anyOf, principal.HasScope):
				next.ServeHTTP(w, r)
			default:
				writeError(w, http.StatusForbidden, "FORBIDDEN", msg)
			}
		})
	}
}

func RequireRead() func(http.Handler) http.Handler   { return RequireScope(model.ScopeRead) }
func RequireWrite() func(http.Handler) http.Handler  { return RequireScope(model.ScopeWrite) }
func RequireUpload() func(http.Handler) http.Handler { return RequireScope(model.ScopeUpload) }
func RequireAdmin() func(http.Handler) http.Handler  { return RequireScope(model.ScopeAdmin) }
