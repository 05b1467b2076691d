package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rite2rise/web-bff/internal/domain"
)

// Endpoint paths relative to the API base URL.
const (
	pathAllEvents           = "user/AllEvents"
	pathJoinEvent           = "user/joinEvent"
	pathLeaveEvent          = "user/leaveEvent"
	pathProviderEvents      = "serviceProvider/getEvents"
	pathPostEvent           = "serviceProvider/postEvent"
	pathUnapprovedProviders = "admin/unapprovedServiceProviders"
	pathApprovedProviders   = "admin/approvedServiceProviders"
	pathApproveProvider     = "admin/approveServiceProvider"
)

// Response contracts. Missing arrays decode to nil and are normalized to empty.
type (
	eventsResponse struct {
		Events []domain.Event `json:"events"`
	}
	eventResponse struct {
		Event *domain.Event `json:"event"`
	}
	unapprovedResponse struct {
		Providers []domain.User `json:"unApprovedServiceProviders"`
	}
	approvedResponse struct {
		Providers []domain.User `json:"approvedServiceProviders"`
	}
	tokenResponse struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
)

type eventIDRequest struct {
	EventID string `json:"eventId"`
}

type providerIDRequest struct {
	ProviderID string `json:"providerId"`
}

// APIClient talks to the external Rite2Rise REST API. The bearer token is an
// opaque credential: it is attached to requests and never interpreted here.
type APIClient struct {
	baseURL *url.URL
	http    *Client
}

func NewAPIClient(baseURL string, c *Client) (*APIClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if c == nil {
		c = NewClient(DefaultClientConfig())
	}
	return &APIClient{baseURL: u, http: c}, nil
}

// BaseURL is the resolved API root, used by readiness probes.
func (c *APIClient) BaseURL() string {
	return c.baseURL.String()
}

func (c *APIClient) AllEvents(ctx context.Context, token string) ([]domain.Event, error) {
	var out eventsResponse
	if err := c.call(ctx, http.MethodGet, pathAllEvents, token, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Events), nil
}

func (c *APIClient) ProviderEvents(ctx context.Context, token string) ([]domain.Event, error) {
	var out eventsResponse
	if err := c.call(ctx, http.MethodGet, pathProviderEvents, token, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Events), nil
}

func (c *APIClient) PostEvent(ctx context.Context, token string, in domain.CreateEventInput) (*domain.Event, error) {
	var out eventResponse
	if err := c.call(ctx, http.MethodPost, pathPostEvent, token, in, &out); err != nil {
		return nil, err
	}
	if out.Event == nil {
		return nil, fmt.Errorf("%s: response carried no event", pathPostEvent)
	}
	return out.Event, nil
}

// JoinEvent registers the token's user. Success is signalled by the HTTP
// status alone.
func (c *APIClient) JoinEvent(ctx context.Context, token, eventID string) error {
	return c.call(ctx, http.MethodPost, pathJoinEvent, token, eventIDRequest{EventID: eventID}, nil)
}

func (c *APIClient) LeaveEvent(ctx context.Context, token, eventID string) error {
	return c.call(ctx, http.MethodPost, pathLeaveEvent, token, eventIDRequest{EventID: eventID}, nil)
}

func (c *APIClient) UnapprovedProviders(ctx context.Context, token string) ([]domain.User, error) {
	var out unapprovedResponse
	if err := c.call(ctx, http.MethodGet, pathUnapprovedProviders, token, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Providers), nil
}

func (c *APIClient) ApprovedProviders(ctx context.Context, token string) ([]domain.User, error) {
	var out approvedResponse
	if err := c.call(ctx, http.MethodGet, pathApprovedProviders, token, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Providers), nil
}

func (c *APIClient) ApproveProvider(ctx context.Context, token, providerID string) error {
	return c.call(ctx, http.MethodPost, pathApproveProvider, token, providerIDRequest{ProviderID: providerID}, nil)
}

// Login exchanges credentials for a token at "{role}/login".
func (c *APIClient) Login(ctx context.Context, role domain.Role, in domain.LoginInput) (string, error) {
	return c.tokenCall(ctx, string(role)+"/login", in)
}

// Signup creates an account at "{role}/signup" and returns its token.
func (c *APIClient) Signup(ctx context.Context, role domain.Role, in domain.SignupInput) (string, error) {
	body := struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		Name         string `json:"name"`
		BusinessName string `json:"businessName,omitempty"`
		Phone        string `json:"phone,omitempty"`
		Address      string `json:"address,omitempty"`
		Description  string `json:"description,omitempty"`
	}{in.Email, in.Password, in.Name, in.BusinessName, in.Phone, in.Address, in.Description}
	return c.tokenCall(ctx, string(role)+"/signup", body)
}

func (c *APIClient) tokenCall(ctx context.Context, path string, body any) (string, error) {
	var out tokenResponse
	if err := c.call(ctx, http.MethodPost, path, "", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", ErrNoToken
	}
	return out.Token, nil
}

// call performs one JSON round trip. out may be nil when only the status
// matters.
func (c *APIClient) call(ctx context.Context, method, path, token string, in, out any) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return make([]T, 0)
	}
	return items
}
