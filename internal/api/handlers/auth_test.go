package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/downstream"
	"github.com/rite2rise/web-bff/internal/session"
	"github.com/rite2rise/web-bff/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthAPI struct {
	mock.Mock
}

func (m *mockAuthAPI) Login(ctx context.Context, role domain.Role, in domain.LoginInput) (string, error) {
	args := m.Called(ctx, role, in)
	return args.String(0), args.Error(1)
}

func (m *mockAuthAPI) Signup(ctx context.Context, role domain.Role, in domain.SignupInput) (string, error) {
	args := m.Called(ctx, role, in)
	return args.String(0), args.Error(1)
}

func issueToken(t *testing.T, role domain.Role, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   "U1",
		"sub":  "u1@example.com",
		"name": "Lerato",
		"role": string(role),
		"exp":  exp.Unix(),
	}).SignedString([]byte("api-secret"))
	require.NoError(t, err)
	return tok
}

func newAuthHandler(api AuthAPI) (*AuthHandler, *session.Store) {
	store := session.NewStore(time.Hour)
	return NewAuthHandler(api, middleware.NewTokenDecoder(""), store, CookieConfig{Name: "token"}), store
}

func TestLogin_SetsCookie(t *testing.T) {
	api := new(mockAuthAPI)
	h, _ := newAuthHandler(api)

	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	tok := issueToken(t, domain.RoleUser, exp)
	api.On("Login", mock.Anything, domain.RoleUser, domain.LoginInput{Email: "u1@example.com", Password: "secret1"}).
		Return(tok, nil).Once()

	req := withURLParam(httptest.NewRequest("POST", "/api/auth/user/login",
		strings.NewReader(`{"email":"u1@example.com","password":"secret1"}`)), "role", "user")
	w := httptest.NewRecorder()
	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	require.NotNil(t, res.User)
	assert.Equal(t, "Lerato", res.User.Name)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Equal(t, tok, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.WithinDuration(t, exp, cookies[0].Expires, time.Second)
}

func TestLogin_RelaysAPIMessage(t *testing.T) {
	api := new(mockAuthAPI)
	h, _ := newAuthHandler(api)
	api.On("Login", mock.Anything, domain.RoleServiceProvider, mock.Anything).
		Return("", &downstream.StatusError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}).Once()

	req := withURLParam(httptest.NewRequest("POST", "/",
		strings.NewReader(`{"email":"p@example.com","password":"wrong"}`)), "role", "serviceProvider")
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid credentials"}`, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestLogin_Validation(t *testing.T) {
	api := new(mockAuthAPI)
	h, _ := newAuthHandler(api)

	req := withURLParam(httptest.NewRequest("POST", "/", strings.NewReader(`{"email":""}`)), "role", "user")
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please fill in all required fields")
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_UnknownRole(t *testing.T) {
	h, _ := newAuthHandler(new(mockAuthAPI))

	req := withURLParam(httptest.NewRequest("POST", "/", strings.NewReader(`{}`)), "role", "superuser")
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignup_ProviderNeedsBusinessName(t *testing.T) {
	api := new(mockAuthAPI)
	h, _ := newAuthHandler(api)

	body := `{"email":"p@example.com","password":"secret1","confirmPassword":"secret1","name":"Sipho"}`
	req := withURLParam(httptest.NewRequest("POST", "/", strings.NewReader(body)), "role", "serviceProvider")
	w := httptest.NewRecorder()
	h.Signup(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Business name is required")
	api.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignup_Success(t *testing.T) {
	api := new(mockAuthAPI)
	h, _ := newAuthHandler(api)
	api.On("Signup", mock.Anything, domain.RoleUser, mock.AnythingOfType("domain.SignupInput")).
		Return(issueToken(t, domain.RoleUser, time.Now().Add(time.Hour)), nil).Once()

	body := `{"email":"u1@example.com","password":"secret1","confirmPassword":"secret1","name":"Lerato"}`
	req := withURLParam(httptest.NewRequest("POST", "/", strings.NewReader(body)), "role", "user")
	w := httptest.NewRecorder()
	h.Signup(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Signup successful")
	assert.Len(t, w.Result().Cookies(), 1)
}

func TestLogout_DropsSession(t *testing.T) {
	h, store := newAuthHandler(new(mockAuthAPI))
	store.Get(participant, "tok")

	w := httptest.NewRecorder()
	h.Logout(w, asUser(httptest.NewRequest("POST", "/api/auth/logout", nil), participant))

	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := store.Lookup("U1")
	assert.False(t, ok)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMe(t *testing.T) {
	h, _ := newAuthHandler(new(mockAuthAPI))

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest("GET", "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.Me(w, asUser(httptest.NewRequest("GET", "/api/me", nil), participant))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"user"`)
}
