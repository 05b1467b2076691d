package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/downstream"
	"github.com/rite2rise/web-bff/internal/logger"
	"github.com/rite2rise/web-bff/internal/session"
	"github.com/rite2rise/web-bff/middleware"
)

type AuthAPI interface {
	Login(ctx context.Context, role domain.Role, in domain.LoginInput) (string, error)
	Signup(ctx context.Context, role domain.Role, in domain.SignupInput) (string, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	api     AuthAPI
	decoder *middleware.TokenDecoder
	store   *session.Store
	cookie  CookieConfig
}

func NewAuthHandler(api AuthAPI, decoder *middleware.TokenDecoder, store *session.Store, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{api: api, decoder: decoder, store: store, cookie: cookie}
}

type AuthResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	User    *domain.Identity `json:"user,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}

	var in domain.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		sendError(w, r, "invalid_request", "invalid request body", http.StatusBadRequest)
		return
	}
	if err := domain.ValidateLogin(&in); err != nil {
		sendValidationError(w, r, err)
		return
	}

	token, err := h.api.Login(r.Context(), role, in)
	if err != nil {
		h.relayFailure(w, r, err, "Login failed")
		return
	}
	h.establish(w, r, token, "Login successful")
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}

	var in domain.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		sendError(w, r, "invalid_request", "invalid request body", http.StatusBadRequest)
		return
	}
	if err := domain.ValidateSignup(role, &in); err != nil {
		sendValidationError(w, r, err)
		return
	}

	token, err := h.api.Signup(r.Context(), role, in)
	if err != nil {
		h.relayFailure(w, r, err, "Signup failed")
		return
	}
	h.establish(w, r, token, "Signup successful")
}

// Logout clears the cookie and forgets the caller's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := middleware.GetIdentity(r.Context()); ok {
		h.store.Remove(id.ID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	sendJSON(w, r, http.StatusOK, AuthResponse{Success: true, Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		sendError(w, r, "auth_required", "Please log in to continue", http.StatusUnauthorized)
		return
	}
	sendJSON(w, r, http.StatusOK, id)
}

// establish decodes the token the API issued and hands it to the browser as
// a cookie expiring with the token.
func (h *AuthHandler) establish(w http.ResponseWriter, r *http.Request, token, message string) {
	id, err := h.decoder.Decode(token)
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("api issued an unusable token")
		sendJSON(w, r, http.StatusBadGateway, AuthResponse{Message: "Login failed"})
		return
	}

	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !id.ExpiresAt.IsZero() {
		cookie.Expires = id.ExpiresAt
		cookie.MaxAge = int(time.Until(id.ExpiresAt).Seconds())
	}
	http.SetCookie(w, cookie)

	// a fresh login starts from a fresh snapshot
	h.store.Remove(id.ID)

	sendJSON(w, r, http.StatusOK, AuthResponse{Success: true, Message: message, User: &id})
}

func (h *AuthHandler) relayFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := http.StatusBadGateway
	var se *downstream.StatusError
	switch {
	case errors.As(err, &se) && se.StatusCode < 500:
		status = se.StatusCode
	case errors.Is(err, downstream.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	logger.Ctx(r.Context()).Info().Err(err).Int("status", status).Msg(fallback)
	sendJSON(w, r, status, AuthResponse{Message: downstream.UserMessage(err, fallback)})
}

func roleParam(w http.ResponseWriter, r *http.Request) (domain.Role, bool) {
	role := domain.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		sendError(w, r, "resource_not_found", "unknown role", http.StatusNotFound)
		return "", false
	}
	return role, true
}
