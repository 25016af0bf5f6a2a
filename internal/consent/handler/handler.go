package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consentledger/internal/consent/models"
	"consentledger/pkg/platform/httputil"
	request "consentledger/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the consent operations the HTTP layer needs.
type Service interface {
	CreateConsent(ctx context.Context, req models.GrantRequest) (*models.Consent, error)
	RevokeConsent(ctx context.Context, consentID string) (*models.Consent, error)
	ListConsentsForUser(ctx context.Context, userID string) ([]*models.Consent, error)
}

// Handler handles consent endpoints.
type Handler struct {
	logger  *slog.Logger
	consent Service
}

// New creates a new consent Handler.
func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consent", h.handleGrantConsent)
	r.Post("/consent/revoke", h.handleRevokeConsent)
	r.Get("/consents/{user_id}", h.handleListConsents)
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	consent, err := h.consent.CreateConsent(ctx, *req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, models.MutationResponse{
		Message: models.MessageConsentGranted,
		Consent: consent,
	})
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	consent, err := h.consent.RevokeConsent(ctx, req.ConsentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.MutationResponse{
		Message: models.MessageConsentRevoked,
		Consent: consent,
	})
}

func (h *Handler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	consents, err := h.consent.ListConsentsForUser(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if consents == nil {
		consents = []*models.Consent{}
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListResponse{Consents: consents})
}
