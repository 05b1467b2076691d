package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisRateLimit_AllowsWithinLimit(t *testing.T) {
	rdb := newTestRedis(t)
	handler := RateLimit(rdb, 2, time.Minute)(okHandler())

	req := httptest.NewRequest("GET", "/api/events", nil)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestRedisRateLimit_KeyedByUser(t *testing.T) {
	rdb := newTestRedis(t)
	handler := RateLimit(rdb, 1, time.Minute)(okHandler())

	alice := httptest.NewRequest("GET", "/", nil)
	alice = alice.WithContext(WithIdentity(alice.Context(), domain.Identity{ID: "alice"}, "t1"))
	bob := httptest.NewRequest("GET", "/", nil)
	bob = bob.WithContext(WithIdentity(bob.Context(), domain.Identity{ID: "bob"}, "t2"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, alice)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, bob)
	assert.Equal(t, http.StatusOK, rec.Code, "other users have their own window")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRedisRateLimit_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	handler := RateLimit(rdb, 1, time.Minute)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestInMemoryRateLimit(t *testing.T) {
	handler := RateLimit(nil, 1, time.Minute)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
