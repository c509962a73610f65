package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/handler/dto"
	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/repository"
)

// APIKeyStore persists API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, id, userID string) error
}

// AuthInvalidator drops cached auth contexts of a user.
type AuthInvalidator interface {
	InvalidateUserAuthContexts(ctx context.Context, userID string) error
}

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	logger *slog.Logger
	store  APIKeyStore
	cache  AuthInvalidator
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(logger *slog.Logger, store APIKeyStore, cache AuthInvalidator) *APIKeyHandler {
	return &APIKeyHandler{
		logger: logger,
		store:  store,
		cache:  cache,
	}
}

// CreateAPIKey handles POST /api/v1/api-keys
func (h *APIKeyHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	for _, scope := range req.Scopes {
		if !model.IsValidScope(scope) {
			writeError(w, http.StatusBadRequest, "INVALID_SCOPE",
				"Invalid scope: "+scope+". Valid scopes: "+strings.Join(model.ValidScopes, ", "))
			return
		}
		// A key never carries more than its creator.
		if !authCtx.HasScope(scope) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Cannot grant scope: "+scope)
			return
		}
	}

	if len(req.Scopes) == 0 {
		req.Scopes = []string{model.ScopeRead}
	}

	apiKey, plaintext, err := h.issue(ctx, authCtx.UserID, req.Name, req.Scopes, model.TierFree)
	if err != nil {
		h.logger.Error("failed to create API key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key")
		return
	}

	h.logger.Info("API key created",
		slog.String("key_id", apiKey.ID),
		slog.String("key_prefix", apiKey.KeyPrefix),
		slog.String("user_id", apiKey.UserID),
	)

	writeJSON(w, http.StatusCreated, createResponse(apiKey, plaintext))
}

// ListAPIKeys handles GET /api/v1/api-keys
func (h *APIKeyHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keys, err := h.store.ListAPIKeysByUserID(ctx, authCtx.UserID)
	if err != nil {
		h.logger.Error("failed to list API keys", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys")
		return
	}

	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, dto.APIKeyListResponse{Keys: responses})
}

// RevokeAPIKey handles DELETE /api/v1/api-keys/{keyId}
func (h *APIKeyHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "keyId")
	if err := h.store.RevokeAPIKey(ctx, keyID, authCtx.UserID); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			// Foreign, unknown and already revoked keys look the same.
			writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
			return
		}
		h.logger.Error("failed to revoke API key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke API key")
		return
	}
	h.invalidate(ctx, authCtx.UserID)

	h.logger.Info("API key revoked",
		slog.String("key_id", keyID),
		slog.String("user_id", authCtx.UserID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// RotateAPIKey handles POST /api/v1/api-keys/{keyId}/rotate
func (h *APIKeyHandler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "keyId")
	oldKey, err := h.store.GetAPIKeyByID(ctx, keyID)
	if err != nil || oldKey.UserID != authCtx.UserID || oldKey.IsRevoked() {
		writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
		return
	}

	newKey, plaintext, err := h.issue(ctx, oldKey.UserID, oldKey.Name, oldKey.Scopes, oldKey.RateLimitTier)
	if err != nil {
		h.logger.Error("failed to create rotated API key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to rotate API key")
		return
	}

	revokedAt := time.Now().UTC()
	if err := h.store.RevokeAPIKey(ctx, oldKey.ID, oldKey.UserID); err != nil {
		// The new key is already usable; the old one stays until revoked again.
		h.logger.Error("failed to revoke old API key during rotation", slog.String("error", err.Error()))
	}
	h.invalidate(ctx, authCtx.UserID)

	h.logger.Info("API key rotated",
		slog.String("old_key_id", oldKey.ID),
		slog.String("new_key_id", newKey.ID),
		slog.String("user_id", authCtx.UserID),
	)

	writeJSON(w, http.StatusOK, dto.APIKeyRotateResponse{
		OldKeyID:        oldKey.ID,
		OldKeyRevokedAt: revokedAt,
		NewKey:          createResponse(newKey, plaintext),
	})
}

// issue generates and stores a key, returning it with its plaintext.
func (h *APIKeyHandler) issue(ctx context.Context, userID, name string, scopes []string, tier string) (*model.APIKey, string, error) {
	generated, err := auth.GenerateAPIKey(auth.EnvLive)
	if err != nil {
		return nil, "", err
	}

	key := &model.APIKey{
		ID:            strings.ToLower(ulid.Make().String()),
		UserID:        userID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: tier,
		Name:          name,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, generated.Plaintext, nil
}

func (h *APIKeyHandler) invalidate(ctx context.Context, userID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateUserAuthContexts(ctx, userID); err != nil {
		h.logger.Warn("failed to invalidate cached auth contexts",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func createResponse(key *model.APIKey, plaintext string) model.APIKeyCreateResponse {
	return model.APIKeyCreateResponse{APIKeyResponse: key.ToResponse(), Key: plaintext}
}
