package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consentledger/internal/audit/models"
	"consentledger/pkg/platform/httputil"
)

// Service lists a user's access trail.
type Service interface {
	ListLogsForUser(ctx context.Context, userID string) ([]*models.AccessLogEntry, error)
}

// Handler serves the read side of the access trail.
type Handler struct {
	logger *slog.Logger
	logs   Service
}

func New(logs Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, logs: logs}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/logs/{user_id}", h.handleListLogs)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.ListLogsForUser(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.AccessLogEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListResponse{Logs: entries})
}
