package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/downstream"
	"github.com/rite2rise/web-bff/internal/logger"
	"github.com/rite2rise/web-bff/middleware"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	domain.APIError
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	resp := errorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func sendJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func sendValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		sendError(w, r, "validation_failed", err.Error(), http.StatusBadRequest)
		return
	}

	resp := errorResponse{Fields: ve.Fields}
	resp.Error.Code = "validation_failed"
	resp.Error.Message = ve.Fields[0].Message
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, resp)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return render.DecodeJSON(r.Body, v)
}

// handleDownstreamError maps a failed Rite2Rise API call onto a response.
// API-reported 4xx keep their status and message; everything else is a
// gateway error.
func handleDownstreamError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	switch {
	case errors.Is(err, downstream.ErrTimeout):
		sendError(w, r, "upstream_timeout", defaultMsg, http.StatusGatewayTimeout)
		return
	case errors.Is(err, downstream.ErrUnavailable):
		sendError(w, r, "upstream_unavailable", defaultMsg, http.StatusBadGateway)
		return
	}

	var se *downstream.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		sendError(w, r, statusCode(se.StatusCode), downstream.UserMessage(err, defaultMsg), se.StatusCode)
		return
	}

	logger.Ctx(r.Context()).Error().Err(err).Msg(defaultMsg)
	sendError(w, r, "upstream_error", defaultMsg, http.StatusBadGateway)
}

func statusCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "resource_not_found"
	case http.StatusConflict:
		return "conflict_state"
	}
	return "request_rejected"
}

// handlePolicyError maps a registration pre-condition rejection.
func handlePolicyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		sendError(w, r, err.Error(), "Please log in to register for events", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrRoleNotAllowed):
		sendError(w, r, err.Error(), "Only participants can register for events", http.StatusForbidden)
	case errors.Is(err, domain.ErrActionPending):
		sendError(w, r, err.Error(), "An action for this event is already in progress", http.StatusConflict)
	case errors.Is(err, domain.ErrEventNotFound):
		sendError(w, r, "resource_not_found", "event not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrEventPast):
		sendError(w, r, err.Error(), "This event has already taken place", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrEventFull):
		sendError(w, r, err.Error(), "This event is full", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrAlreadyRegistered):
		sendError(w, r, err.Error(), "You are already registered for this event", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrNotRegistered):
		sendError(w, r, err.Error(), "You are not registered for this event", http.StatusUnprocessableEntity)
	default:
		sendError(w, r, "internal_error", "unexpected error", http.StatusInternalServerError)
	}
}
