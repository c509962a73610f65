package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/model"
)

// minAuthDuration is the minimum time spent on API key auth so that
// unknown and wrong keys cannot be told apart by latency.
var minAuthDuration = 200 * time.Millisecond

// KeyStore looks up API keys for authentication.
type KeyStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches resolved auth contexts by key hash.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Keys   KeyStore
	Cache  AuthCache
	// Sessions verifies builder session tokens. Nil disables them.
	Sessions *auth.SessionManager
}

// Auth returns a middleware that authenticates API requests.
// The credential comes from "Authorization: Bearer" or "X-API-Key". Values in
// API key format are checked against the key store; anything else is
// treated as a session token when sessions are enabled.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := extractAPIKey(r)
			if credential == "" {
				logAuthFailure(cfg.Logger, r, "missing_credential")
				writeAuthError(w)
				return
			}

			var (
				authCtx *model.AuthContext
				reason  string
			)
			if auth.ValidateKeyFormat(credential) {
				authCtx, reason = authenticateAPIKey(r.Context(), cfg, credential)
			} else if cfg.Sessions != nil {
				authCtx, reason = authenticateSession(cfg, credential)
			} else {
				reason = "invalid_format"
			}

			if authCtx == nil {
				logAuthFailure(cfg.Logger, r, reason)
				writeAuthError(w)
				return
			}

			cfg.Logger.Info("authentication successful",
				slog.String("source", authCtx.Source),
				slog.String("key_id", authCtx.KeyID),
				slog.String("user_id", authCtx.UserID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticateAPIKey resolves an API key, consulting the cache first.
// It returns a failure reason when the key is not accepted.
func authenticateAPIKey(ctx context.Context, cfg AuthConfig, key string) (*model.AuthContext, string) {
	startTime := time.Now()
	defer func() {
		if elapsed := time.Since(startTime); elapsed < minAuthDuration {
			time.Sleep(minAuthDuration - elapsed)
		}
	}()

	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	cacheKey := auth.QuickHash(key)
	if cached, _ := cfg.Cache.GetAuthContext(ctx, cacheKey); cached != nil {
		return cached, ""
	}

	keys, err := cfg.Keys.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("database error during auth",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(ctx)),
		)
		return nil, "lookup_failed"
	}

	// Several keys may share a prefix.
	var matched *model.APIKey
	for _, k := range keys {
		if ok, err := auth.VerifyKey(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, "invalid_key"
	}

	authCtx := &model.AuthContext{
		KeyID:         matched.ID,
		KeyPrefix:     matched.KeyPrefix,
		UserID:        matched.UserID,
		Scopes:        matched.Scopes,
		RateLimitTier: matched.RateLimitTier,
		Source:        model.AuthSourceAPIKey,
	}
	_ = cfg.Cache.SetAuthContext(ctx, cacheKey, authCtx)

	go func(ctx context.Context, id string) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = cfg.Keys.UpdateAPIKeyLastUsed(ctx, id)
	}(context.WithoutCancel(ctx), matched.ID)

	return authCtx, ""
}

func authenticateSession(cfg AuthConfig, token string) (*model.AuthContext, string) {
	authCtx, err := cfg.Sessions.Verify(token)
	if err != nil {
		return nil, "invalid_session"
	}
	return authCtx, ""
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractAPIKey extracts the credential from the request.
// Supports both "Authorization: Bearer <token>" and "X-API-Key: <key>" headers.
func extractAPIKey(r *http.Request) string {
	if token, ok := auth.ExtractBearer(r.Header.Get("Authorization")); ok {
		return token
	}
	return r.Header.Get("X-API-Key")
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing credentials")
}
