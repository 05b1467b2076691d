package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/session"
	"github.com/rite2rise/web-bff/middleware"
)

// Coordinator is the registration engine behind the event routes.
type Coordinator interface {
	Refresh(ctx context.Context, sess *session.Session) error
	EnsureLoaded(ctx context.Context, sess *session.Session) error
	Register(ctx context.Context, sess *session.Session, eventID string) (session.Outcome, error)
	Unregister(ctx context.Context, sess *session.Session, eventID string) (session.Outcome, error)
}

type EventsHandler struct {
	store *session.Store
	coord Coordinator
	now   func() time.Time
}

func NewEventsHandler(store *session.Store, coord Coordinator) *EventsHandler {
	return &EventsHandler{store: store, coord: coord, now: time.Now}
}

type EventViewResponse struct {
	Event        domain.Event            `json:"event"`
	Registration domain.RegistrationView `json:"registration"`
	Actions      domain.ActionPolicy     `json:"actions"`
}

type EventListResponse struct {
	Events []EventViewResponse `json:"events"`
	Count  int                 `json:"count"`
}

type ActionResponse struct {
	session.Outcome
	Actions domain.ActionPolicy `json:"actions"`
}

// sessionFor returns the caller's stored session, or a throwaway one for
// anonymous browsing.
func (h *EventsHandler) sessionFor(r *http.Request) *session.Session {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		return session.New(domain.Identity{}, "")
	}
	return h.store.Get(id, middleware.GetBearerToken(r.Context()))
}

// ListEvents fetches a fresh snapshot and lists it with the caller's view of
// each event, narrowed by ?q= and ?filter=.
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := domain.ParseEventFilter(r.URL.Query().Get("filter"))
	if err != nil {
		sendError(w, r, "validation_failed", "filter must be one of all, upcoming, past", http.StatusBadRequest)
		return
	}

	sess := h.sessionFor(r)
	if err := h.coord.Refresh(r.Context(), sess); err != nil {
		handleDownstreamError(w, r, err, "Failed to load events")
		return
	}

	h.writeList(w, r, sess, r.URL.Query().Get("q"), filter)
}

// RefreshEvents forces a re-fetch for the signed-in user.
func (h *EventsHandler) RefreshEvents(w http.ResponseWriter, r *http.Request) {
	sess := h.sessionFor(r)
	if err := h.coord.Refresh(r.Context(), sess); err != nil {
		handleDownstreamError(w, r, err, "Failed to load events")
		return
	}
	h.writeList(w, r, sess, "", domain.FilterAll)
}

func (h *EventsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	sess := h.sessionFor(r)
	if err := h.coord.EnsureLoaded(r.Context(), sess); err != nil {
		handleDownstreamError(w, r, err, "Failed to load events")
		return
	}

	ev, ok := sess.Snapshot().Event(eventID)
	if !ok {
		sendError(w, r, "resource_not_found", "event not found", http.StatusNotFound)
		return
	}

	now := h.now()
	id := sess.Identity()
	view := sess.View(eventID, now)
	sendJSON(w, r, http.StatusOK, EventViewResponse{
		Event:        ev,
		Registration: view,
		Actions:      domain.CalculateActionPolicy(&ev, view, &id, now),
	})
}

func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, session.ActionRegister)
}

func (h *EventsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, session.ActionUnregister)
}

// act runs one registration action. A failed API call is still a 200: the
// outcome carries success=false and the message to show.
func (h *EventsHandler) act(w http.ResponseWriter, r *http.Request, action session.Action) {
	eventID := chi.URLParam(r, "id")
	ctx := r.Context()

	sess := h.sessionFor(r)
	if err := h.coord.EnsureLoaded(ctx, sess); err != nil {
		handleDownstreamError(w, r, err, "Failed to load events")
		return
	}

	out, err := h.dispatch(ctx, sess, eventID, action)
	if errors.Is(err, domain.ErrEventNotFound) {
		// the event may be newer than this session's snapshot
		if rerr := h.coord.Refresh(ctx, sess); rerr != nil {
			handleDownstreamError(w, r, rerr, "Failed to load events")
			return
		}
		out, err = h.dispatch(ctx, sess, eventID, action)
	}
	if err != nil {
		handlePolicyError(w, r, err)
		return
	}

	resp := ActionResponse{Outcome: out}
	if ev, ok := sess.Snapshot().Event(eventID); ok {
		id := sess.Identity()
		resp.Actions = domain.CalculateActionPolicy(&ev, out.View, &id, h.now())
	}
	sendJSON(w, r, http.StatusOK, resp)
}

func (h *EventsHandler) dispatch(ctx context.Context, sess *session.Session, eventID string, action session.Action) (session.Outcome, error) {
	if action == session.ActionRegister {
		return h.coord.Register(ctx, sess, eventID)
	}
	return h.coord.Unregister(ctx, sess, eventID)
}

func (h *EventsHandler) writeList(w http.ResponseWriter, r *http.Request, sess *session.Session, query string, filter domain.EventFilter) {
	now := h.now()
	id := sess.Identity()

	views := sess.EventViews(now)
	byID := make(map[string]domain.RegistrationView, len(views))
	events := make([]domain.Event, 0, len(views))
	for _, v := range views {
		byID[v.Event.ID] = v.View
		events = append(events, v.Event)
	}

	filtered := domain.FilterEvents(events, query, filter, now)
	resp := EventListResponse{
		Events: make([]EventViewResponse, 0, len(filtered)),
		Count:  len(filtered),
	}
	for _, ev := range filtered {
		view := byID[ev.ID]
		resp.Events = append(resp.Events, EventViewResponse{
			Event:        ev,
			Registration: view,
			Actions:      domain.CalculateActionPolicy(&ev, view, &id, now),
		})
	}

	sendJSON(w, r, http.StatusOK, resp)
}
