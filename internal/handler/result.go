package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowbot/flowbot/internal/handler/dto"
	"github.com/flowbot/flowbot/internal/middleware"
	"github.com/flowbot/flowbot/internal/service"
)

// TicketVariableReader reads the ticket variables of a result.
type TicketVariableReader interface {
	TicketVariables(ctx context.Context, typebotID, resultID, ticketVar, tokenVar string) (*service.TicketVariables, error)
}

// ResultHandler serves result lookups to the viewer.
type ResultHandler struct {
	service TicketVariableReader
	logger  *slog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(svc TicketVariableReader, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{
		service: svc,
		logger:  logger,
	}
}

// TicketVariables handles
// GET /api/typebots/{typebotId}/results/{resultId}/ticket/{ticketId}?accessTokenVariable=
//
// {ticketId} names the variable holding the ticket id. Unknown results and
// variables yield nulls.
func (h *ResultHandler) TicketVariables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	ticketVar := chi.URLParam(r, "ticketId")
	if err := middleware.ValidateVariableName(ticketVar); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid ticket variable: "+err.Error())
		return
	}
	tokenVar := r.URL.Query().Get("accessTokenVariable")
	if tokenVar != "" {
		if err := middleware.ValidateVariableName(tokenVar); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid accessTokenVariable: "+err.Error())
			return
		}
	}

	vars, err := h.service.TicketVariables(r.Context(),
		chi.URLParam(r, "typebotId"),
		chi.URLParam(r, "resultId"),
		ticketVar,
		tokenVar,
	)
	if err != nil {
		h.logger.Error("result lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.TicketVariablesResponse{
		Success:     true,
		TicketID:    vars.TicketID,
		AccessToken: vars.AccessToken,
	})
}
