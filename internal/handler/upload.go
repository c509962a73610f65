package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/metrics"
	"github.com/flowbot/flowbot/internal/storage"
)

// UploadHandler issues presigned upload URLs.
type UploadHandler struct {
	signer  storage.Signer
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler. A nil signer means no
// storage provider is configured; requests then fail with 400.
func NewUploadHandler(signer storage.Signer, recorder metrics.Recorder, logger *slog.Logger) *UploadHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UploadHandler{
		signer:  signer,
		metrics: recorder,
		logger:  logger,
	}
}

// AllowAnyOrigin sets Access-Control-Allow-Origin: * on every response of
// the wrapped route, including auth failures, and answers preflights.
func AllowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, X-API-Key, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UploadURL handles GET /api/storage/upload-url?filePath=&fileType=
func (h *UploadHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if auth.AuthFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	if h.signer == nil {
		writeError(w, http.StatusBadRequest, "STORAGE_NOT_CONFIGURED", storage.ErrNotConfigured.Error())
		return
	}

	q := r.URL.Query()
	upload, err := h.signer.Presign(r.Context(), storage.UploadRequest{
		FilePath: q.Get("filePath"),
		FileType: q.Get("fileType"),
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing filePath or fileType")
			return
		}
		h.logger.Error("presign upload failed",
			slog.String("provider", h.signer.Provider()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not create upload URL")
		return
	}

	h.metrics.IncUploadURLIssued(h.signer.Provider())
	writeJSON(w, http.StatusOK, upload)
}
