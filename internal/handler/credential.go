package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/handler/dto"
	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/service"
)

// CredentialManager manages workspace credentials.
type CredentialManager interface {
	CreateTrudeskCredential(ctx context.Context, input service.CreateTrudeskInput) (*model.Credential, error)
	ListCredentials(ctx context.Context, workspaceID, userID, credType string) ([]*model.Credential, error)
	DeleteCredential(ctx context.Context, id, workspaceID, userID string) error
}

// CredentialHandler handles credential endpoints under a workspace.
type CredentialHandler struct {
	service CredentialManager
	logger  *slog.Logger
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(svc CredentialManager, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{
		service: svc,
		logger:  logger,
	}
}

// Create handles POST /api/v1/workspaces/{workspaceId}/credentials
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTrudeskCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.Type != "" && req.Type != model.CredentialTypeTrudesk {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Unsupported credential type: "+req.Type)
		return
	}

	cred, err := h.service.CreateTrudeskCredential(r.Context(), service.CreateTrudeskInput{
		WorkspaceID: chi.URLParam(r, "workspaceId"),
		UserID:      auth.UserIDFromContext(r.Context()),
		Name:        req.Name,
		UserName:    req.Data.UserName,
		Password:    req.Data.Password,
		BaseURL:     req.Data.BaseURL,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("credential created",
		slog.String("credential_id", cred.ID),
		slog.String("workspace_id", cred.WorkspaceID),
		slog.String("type", cred.Type),
	)
	writeJSON(w, http.StatusCreated, cred.ToResponse())
}

// List handles GET /api/v1/workspaces/{workspaceId}/credentials?type=
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	creds, err := h.service.ListCredentials(r.Context(),
		chi.URLParam(r, "workspaceId"),
		auth.UserIDFromContext(r.Context()),
		r.URL.Query().Get("type"),
	)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCredentialList(creds))
}

// Delete handles DELETE /api/v1/workspaces/{workspaceId}/credentials/{credentialId}
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "credentialId")
	workspaceID := chi.URLParam(r, "workspaceId")

	if err := h.service.DeleteCredential(r.Context(), id, workspaceID, auth.UserIDFromContext(r.Context())); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("credential deleted",
		slog.String("credential_id", id),
		slog.String("workspace_id", workspaceID),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CredentialHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredential):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Not allowed in this workspace")
	case errors.Is(err, service.ErrWorkspaceNotFound):
		writeError(w, http.StatusNotFound, "WORKSPACE_NOT_FOUND", "Workspace not found")
	case errors.Is(err, service.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, "CREDENTIALS_NOT_FOUND", "No credentials found")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
