package auth

import (
	"context"

	"github.com/flowbot/flowbot/internal/model"
)

type authContextKey struct{}

// ContextWithAuth stores the authenticated principal on ctx.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthFromContext returns the principal set by the auth middleware, or nil.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*model.AuthContext)
	return auth
}

// UserIDFromContext returns the authenticated user, or "" when anonymous.
// Workspace membership checks key off this value.
func UserIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.UserID
	}
	return ""
}

// SourceFromContext reports how the request was authenticated: an API key,
// a builder session, or "" when anonymous.
func SourceFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.Source
	}
	return ""
}
