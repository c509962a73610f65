package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flowbot/flowbot/internal/handler/dto"
	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/repository"
)

// AdminWorkspaceReader loads a workspace and its credentials without a
// membership check.
type AdminWorkspaceReader interface {
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	ListCredentials(ctx context.Context, workspaceID, credType string) ([]*model.Credential, error)
}

// AdminKeyLister defines the interface for listing API keys.
type AdminKeyLister interface {
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
}

// AdminHandler provides admin-only endpoints for support and operations.
type AdminHandler struct {
	workspaces AdminWorkspaceReader
	keys       AdminKeyLister
	logger     *slog.Logger
	startedAt  time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(workspaces AdminWorkspaceReader, keys AdminKeyLister, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		workspaces: workspaces,
		keys:       keys,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

// Workspace handles GET /api/v1/admin/workspaces/{workspaceId}
// Returns the workspace with credential metadata, never secrets.
func (h *AdminHandler) Workspace(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ws, err := h.workspaces.GetWorkspace(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, repository.ErrWorkspaceNotFound) {
			writeError(w, http.StatusNotFound, "WORKSPACE_NOT_FOUND", "Workspace not found")
			return
		}
		h.logger.Error("failed to load workspace", "error", err, "workspace_id", workspaceID)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load workspace")
		return
	}

	creds, err := h.workspaces.ListCredentials(ctx, workspaceID, "")
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err, "workspace_id", workspaceID)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list credentials")
		return
	}

	writeJSON(w, http.StatusOK, dto.WorkspaceOverview{
		Workspace:   ws,
		Credentials: dto.ToCredentialList(creds).Credentials,
	})
}

// AdminAPIKeyListResponse represents the response for API key listing.
type AdminAPIKeyListResponse struct {
	Keys  []model.APIKeyResponse `json:"keys"`
	Total int                    `json:"total"`
}

// ListAPIKeysByUser handles GET /api/v1/admin/api-keys?user_id={id}
// Lists all API keys for a specific user (admin only).
func (h *AdminHandler) ListAPIKeysByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "query parameter 'user_id' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	keys, err := h.keys.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list API keys",
			"error", err,
			"user_id", userID,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list API keys")
		return
	}

	response := AdminAPIKeyListResponse{
		Keys:  make([]model.APIKeyResponse, 0, len(keys)),
		Total: len(keys),
	}

	for _, key := range keys {
		response.Keys = append(response.Keys, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, response)
}

// StatsResponse represents operational statistics.
type StatsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Timestamp: time.Now().UTC(),
		Service:   "flowbot",
		Version:   Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}
