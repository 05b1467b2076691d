package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/logger"
	"github.com/rite2rise/web-bff/middleware"
)

type AdminAPI interface {
	UnapprovedProviders(ctx context.Context, token string) ([]domain.User, error)
	ApprovedProviders(ctx context.Context, token string) ([]domain.User, error)
	ApproveProvider(ctx context.Context, token, providerID string) error
}

type AdminHandler struct {
	api AdminAPI
}

func NewAdminHandler(api AdminAPI) *AdminHandler {
	return &AdminHandler{api: api}
}

type ProvidersResponse struct {
	Providers []domain.User `json:"providers"`
}

func (h *AdminHandler) UnapprovedProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.api.UnapprovedProviders(r.Context(), middleware.GetBearerToken(r.Context()))
	if err != nil {
		handleDownstreamError(w, r, err, "Failed to load pending providers")
		return
	}
	sendJSON(w, r, http.StatusOK, ProvidersResponse{Providers: providers})
}

func (h *AdminHandler) ApprovedProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.api.ApprovedProviders(r.Context(), middleware.GetBearerToken(r.Context()))
	if err != nil {
		handleDownstreamError(w, r, err, "Failed to load approved providers")
		return
	}
	sendJSON(w, r, http.StatusOK, ProvidersResponse{Providers: providers})
}

// ApproveProvider approves one provider and answers with the refreshed
// pending list.
func (h *AdminHandler) ApproveProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")
	token := middleware.GetBearerToken(r.Context())

	if err := h.api.ApproveProvider(r.Context(), token, providerID); err != nil {
		handleDownstreamError(w, r, err, "Failed to approve provider")
		return
	}

	pending, err := h.api.UnapprovedProviders(r.Context(), token)
	if err != nil {
		// the approval went through; only the follow-up list is missing
		logger.Ctx(r.Context()).Warn().Err(err).Str("provider_id", providerID).Msg("reload pending providers failed")
		pending = []domain.User{}
	}
	sendJSON(w, r, http.StatusOK, ProvidersResponse{Providers: pending})
}

// NotImplemented answers admin actions the API does not offer yet.
func (h *AdminHandler) NotImplemented(w http.ResponseWriter, r *http.Request) {
	sendError(w, r, "not_implemented", "This action is not available yet", http.StatusNotImplemented)
}
