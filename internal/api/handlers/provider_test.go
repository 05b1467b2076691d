package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/downstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProviderAPI struct {
	mock.Mock
}

func (m *mockProviderAPI) ProviderEvents(ctx context.Context, token string) ([]domain.Event, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockProviderAPI) PostEvent(ctx context.Context, token string, in domain.CreateEventInput) (*domain.Event, error) {
	args := m.Called(ctx, token, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

var provider = domain.Identity{ID: "SP1", Name: "Youth Hub", Role: domain.RoleServiceProvider}

func TestProviderListEvents(t *testing.T) {
	api := new(mockProviderAPI)
	h := NewProviderHandler(api)

	ev := testEvent("E1", "Tree Planting", time.Now().Add(time.Hour), intPtr(3), "U1", "U2")
	ev.CurrentParticipants = 0
	api.On("ProviderEvents", mock.Anything, "test-token-SP1").Return([]domain.Event{ev}, nil).Once()

	w := httptest.NewRecorder()
	h.ListEvents(w, asUser(httptest.NewRequest("GET", "/api/provider/events", nil), provider))

	require.Equal(t, http.StatusOK, w.Code)
	var res ProviderEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Events, 1)
	assert.Equal(t, 2, res.Events[0].CurrentParticipants)
	assert.Len(t, res.Registrations, 2)
}

func TestProviderCreateEvent(t *testing.T) {
	api := new(mockProviderAPI)
	h := NewProviderHandler(api)

	date := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Minute)
	api.On("PostEvent", mock.Anything, "test-token-SP1", mock.MatchedBy(func(in domain.CreateEventInput) bool {
		return in.ServiceProviderID == "SP1" && in.Name == "Tree Planting" && in.Date == date.Format(time.RFC3339)
	})).Return(&domain.Event{ID: "new", Name: "Tree Planting"}, nil).Once()

	body := `{"Name":"  Tree Planting ","date":"` + date.Format("2006-01-02T15:04") + `","location":"Soweto","serviceProviderId":"someone-else"}`
	w := httptest.NewRecorder()
	h.CreateEvent(w, asUser(httptest.NewRequest("POST", "/api/provider/events", strings.NewReader(body)), provider))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"new"`)
	api.AssertExpectations(t)
}

func TestProviderCreateEvent_PastDate(t *testing.T) {
	api := new(mockProviderAPI)
	h := NewProviderHandler(api)

	body := `{"Name":"Tree Planting","date":"2001-01-01T10:00","location":"Soweto"}`
	w := httptest.NewRecorder()
	h.CreateEvent(w, asUser(httptest.NewRequest("POST", "/", strings.NewReader(body)), provider))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Event date must be in the future")
	api.AssertNotCalled(t, "PostEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestProviderCreateEvent_APIRejects(t *testing.T) {
	api := new(mockProviderAPI)
	h := NewProviderHandler(api)
	api.On("PostEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &downstream.StatusError{StatusCode: http.StatusForbidden, Message: "Provider not approved"}).Once()

	body := `{"Name":"Tree Planting","date":"` + time.Now().Add(time.Hour).UTC().Format(time.RFC3339) + `","location":"Soweto"}`
	w := httptest.NewRecorder()
	h.CreateEvent(w, asUser(httptest.NewRequest("POST", "/", strings.NewReader(body)), provider))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Provider not approved")
}
