package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rite2rise/web-bff/internal/api"
	"github.com/rite2rise/web-bff/internal/config"
	"github.com/rite2rise/web-bff/internal/downstream"
	"github.com/rite2rise/web-bff/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, id, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   id,
		"sub":  id + "@example.com",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("shared"))
	require.NoError(t, err)
	return tok
}

func TestRouter_Integration(t *testing.T) {
	var joined atomic.Bool
	eventDate := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	// 1. Fake Rite2Rise API
	fakeAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/AllEvents":
			members := `[]`
			if joined.Load() {
				members = `[{"id":"U1","email":"U1@example.com","name":"U1"}]`
			}
			w.Write([]byte(`{"events":[{"id":"E1","Name":"Beach Cleanup","date":"` + eventDate +
				`","location":"Durban","maxParticipants":5,"ConfirmedUsers":` + members + `}]}`))
		case "/api/user/joinEvent":
			joined.Store(true)
			w.Write([]byte(`{"message":"joined"}`))
		case "/api/user/login":
			w.Write([]byte(`{"token":"` + token(t, "U1", "user") + `"}`))
		case "/api/admin/unapprovedServiceProviders":
			w.Write([]byte(`{"unApprovedServiceProviders":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer fakeAPI.Close()

	// 2. Config pointing to the fake
	cfg := &config.Config{
		Port:                 "8080",
		APIBaseURL:           fakeAPI.URL + "/api/",
		JWTSecret:            "shared",
		TokenCookie:          "token",
		RegistrationStrategy: config.StrategyRefresh,
		CORSAllowedOrigins:   []string{"http://localhost:3000"},
		RLEnabled:            true,
		RLLimit:              1000,
		RLWindow:             time.Minute,
	}

	client, err := downstream.NewAPIClient(cfg.APIBaseURL, downstream.NewClient(downstream.ClientConfig{
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		Transport:    http.DefaultTransport,
	}))
	require.NoError(t, err)

	// 3. Router
	router := api.NewRouter(cfg, api.Deps{
		API:         client,
		Store:       session.NewStore(time.Hour),
		Coordinator: session.NewCoordinator(client, session.Strategy(cfg.RegistrationStrategy)),
	})

	userTok := token(t, "U1", "user")

	t.Run("Healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})

	t.Run("Login sets cookie", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/auth/user/login", strings.NewReader(`{"email":"U1@example.com","password":"pw"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, w.Result().Cookies(), 1)
		assert.Equal(t, "token", w.Result().Cookies()[0].Name)
	})

	t.Run("Register requires auth", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/events/E1/register", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Provider cannot register", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/events/E1/register", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, "SP1", "serviceProvider"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Register then list", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/events/E1/register", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: userTok})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var out struct {
			Success      bool `json:"success"`
			Registration struct {
				Registered bool `json:"is_registered"`
				Count      int  `json:"count"`
				Optimistic bool `json:"optimistic"`
			} `json:"registration"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.True(t, out.Success)
		assert.True(t, out.Registration.Registered)
		assert.Equal(t, 1, out.Registration.Count)
		assert.False(t, out.Registration.Optimistic, "refresh strategy settles on fetched data")

		req = httptest.NewRequest("GET", "/api/events?filter=upcoming", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: userTok})
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"can_unregister":true`)
	})

	t.Run("Admin routes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/admin/providers/unapproved", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, "A1", "admin"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"providers":[]}`, w.Body.String())

		req = httptest.NewRequest("DELETE", "/api/admin/users/U1", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, "A1", "admin"))
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})

	t.Run("Metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "registration_actions_total")
		assert.Contains(t, w.Body.String(), `route="/api/events/{id}/register",service="web-bff"`)
		assert.NotContains(t, w.Body.String(), `route="/api/events/E1/register"`)
	})
}
