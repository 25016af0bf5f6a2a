package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consentledger/internal/access"
	dErrors "consentledger/pkg/domain-errors"
	"consentledger/pkg/platform/httputil"
	"consentledger/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Evaluator

// Evaluator decides and records one access check.
type Evaluator interface {
	Evaluate(ctx context.Context, req access.Request) (access.Decision, error)
}

// Handler serves POST /data-access.
type Handler struct {
	evaluator Evaluator
	logger    *slog.Logger
}

func New(evaluator Evaluator, logger *slog.Logger) *Handler {
	return &Handler{evaluator: evaluator, logger: logger}
}

// Register mounts the route. Callers wrap r with the application gate and
// the per-application rate limiter.
func (h *Handler) Register(r chi.Router) {
	r.Post("/data-access", h.HandleDataAccess)
}

func (h *Handler) HandleDataAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appID := requestcontext.AppID(ctx)
	if appID == "" {
		h.logger.ErrorContext(ctx, "data access reached handler without an authenticated application",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeMissingCredential, "application credential required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[DataAccessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.AppID != "" && req.AppID != appID {
		h.logger.WarnContext(ctx, "body app_id ignored in favor of authenticated application",
			"request_id", requestID,
			"app_id", appID,
			"body_app_id", req.AppID,
		)
	}

	decision, err := h.evaluator.Evaluate(ctx, access.Request{
		UserID:   req.UserID,
		AppID:    appID,
		DataType: req.DataType,
		Purpose:  req.Purpose,
	})
	if err != nil {
		// A decision paired with an error was never durably logged and is
		// never returned.
		httputil.WriteError(w, err)
		return
	}

	if !decision.Allowed {
		httputil.WriteJSON(w, http.StatusForbidden, DecisionResponse{Reason: decision.Reason})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DecisionResponse{Allowed: true, Message: access.MessageAccessGranted})
}
