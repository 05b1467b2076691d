package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rite2rise/web-bff/internal/domain"
)

type contextKey string

const (
	IdentityKey    contextKey = "identity"
	BearerTokenKey contextKey = "bearer_token"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// tokenClaims is the payload the external API signs: id, sub (email), name,
// role, iat, exp.
type tokenClaims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenDecoder turns a bearer token into the display identity. With a secret
// the HS256 signature is verified; without one the payload is only decoded
// and the external API remains the authority on validity.
type TokenDecoder struct {
	secret []byte
	now    func() time.Time
}

func NewTokenDecoder(secret string) *TokenDecoder {
	return &TokenDecoder{secret: []byte(secret), now: time.Now}
}

func (d *TokenDecoder) Decode(token string) (domain.Identity, error) {
	claims := &tokenClaims{}

	if len(d.secret) > 0 {
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return d.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(d.now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return domain.Identity{}, ErrTokenExpired
			}
			return domain.Identity{}, ErrTokenInvalid
		}
		if !parsed.Valid {
			return domain.Identity{}, ErrTokenInvalid
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return domain.Identity{}, ErrTokenInvalid
		}
		if claims.ExpiresAt != nil && !claims.ExpiresAt.After(d.now()) {
			return domain.Identity{}, ErrTokenExpired
		}
	}

	id := claims.ID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return domain.Identity{}, ErrTokenInvalid
	}

	out := domain.Identity{
		ID:    id,
		Email: claims.Subject,
		Name:  claims.Name,
		Role:  domain.Role(claims.Role),
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Auth attaches the identity and raw token to the request context when a
// usable token is found in the cookie or the Authorization header. Requests
// without one pass through anonymously.
func Auth(dec *TokenDecoder, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := tokenFromRequest(r, cookieName)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := dec.Decode(tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id, tokenStr)))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireRole rejects anonymous requests with 401 and, when roles are given,
// requests from other roles with 403.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "auth_required", "Please log in to continue")
				return
			}
			if len(roles) > 0 && !hasRole(id.Role, roles) {
				writeError(w, r, http.StatusForbidden, "role_not_allowed", "You do not have access to this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role domain.Role, allowed []domain.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var body domain.APIError
	body.Error.Code = code
	body.Error.Message = message
	body.Error.RequestID = GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func WithIdentity(ctx context.Context, id domain.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, IdentityKey, id)
	return context.WithValue(ctx, BearerTokenKey, token)
}

func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(domain.Identity)
	return id, ok
}

func GetBearerToken(ctx context.Context) string {
	token, ok := ctx.Value(BearerTokenKey).(string)
	if !ok {
		return ""
	}
	return token
}
