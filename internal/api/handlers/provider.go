package handlers

import (
	"context"
	"net/http"

	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/middleware"
)

type ProviderAPI interface {
	ProviderEvents(ctx context.Context, token string) ([]domain.Event, error)
	PostEvent(ctx context.Context, token string, in domain.CreateEventInput) (*domain.Event, error)
}

type ProviderHandler struct {
	api ProviderAPI
}

func NewProviderHandler(api ProviderAPI) *ProviderHandler {
	return &ProviderHandler{api: api}
}

type ProviderEventsResponse struct {
	Events        []domain.Event        `json:"events"`
	Registrations []domain.Registration `json:"registrations"`
}

// ListEvents returns the provider's own events with participant counts taken
// from the confirmed-user lists.
func (h *ProviderHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.api.ProviderEvents(r.Context(), middleware.GetBearerToken(r.Context()))
	if err != nil {
		handleDownstreamError(w, r, err, "Failed to load your events")
		return
	}

	idx := domain.Derive(events)
	resp := ProviderEventsResponse{
		Events:        idx.Events(),
		Registrations: idx.Registrations(),
	}
	if resp.Registrations == nil {
		resp.Registrations = []domain.Registration{}
	}
	sendJSON(w, r, http.StatusOK, resp)
}

func (h *ProviderHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateEventInput
	if err := decodeJSON(w, r, &in); err != nil {
		sendError(w, r, "invalid_request", "invalid request body", http.StatusBadRequest)
		return
	}

	// events are always posted on behalf of the signed-in provider
	id, _ := middleware.GetIdentity(r.Context())
	in.ServiceProviderID = id.ID

	if err := domain.ValidateCreateEvent(&in); err != nil {
		sendValidationError(w, r, err)
		return
	}

	ev, err := h.api.PostEvent(r.Context(), middleware.GetBearerToken(r.Context()), in)
	if err != nil {
		handleDownstreamError(w, r, err, "Failed to create event")
		return
	}
	sendJSON(w, r, http.StatusCreated, ev)
}
