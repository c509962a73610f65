package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/ticketing"
)

// TicketTypeLister loads the helpdesk catalog for a workspace credential.
type TicketTypeLister interface {
	ListTicketTypes(ctx context.Context, credentialsID, workspaceID, userID string) (*model.TicketCatalog, error)
}

// TicketingHandler exposes the Trudesk catalog to the builder.
type TicketingHandler struct {
	service TicketTypeLister
	logger  *slog.Logger
}

// NewTicketingHandler creates a new TicketingHandler.
func NewTicketingHandler(service TicketTypeLister, logger *slog.Logger) *TicketingHandler {
	return &TicketingHandler{
		service: service,
		logger:  logger,
	}
}

// ListTicketTypes handles GET /api/v1/trudesk/tickettypes?credentialsId=&workspaceId=
func (h *TicketingHandler) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	credentialsID := q.Get("credentialsId")
	workspaceID := q.Get("workspaceId")
	if credentialsID == "" || workspaceID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "credentialsId and workspaceId are required")
		return
	}

	catalog, err := h.service.ListTicketTypes(r.Context(), credentialsID, workspaceID, auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, catalog)
}

// handleError maps gateway failures to responses. The cause is logged and
// never returned; it may describe the helpdesk but never holds the password.
func (h *TicketingHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ticketing.KindOf(err)
	switch kind {
	case ticketing.KindNotFound:
		writeError(w, http.StatusNotFound, "CREDENTIALS_NOT_FOUND", ticketing.MessageNotFound)
		return
	case ticketing.KindInvalidInput:
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", ticketing.ErrMissingArgument.Error())
		return
	}

	code := "INTERNAL_ERROR"
	switch kind {
	case ticketing.KindAuthenticationFailed:
		code = "AUTHENTICATION_FAILED"
	case ticketing.KindUpstreamError:
		code = "UPSTREAM_ERROR"
	}

	h.logger.Error("ticket type listing failed",
		slog.String("kind", kind.String()),
		slog.String("error", err.Error()),
		slog.String("workspace_id", r.URL.Query().Get("workspaceId")),
		slog.String("credentials_id", r.URL.Query().Get("credentialsId")),
	)
	writeError(w, http.StatusInternalServerError, code, ticketing.MessageListFailed)
}
