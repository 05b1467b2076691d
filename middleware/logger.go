package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per request, including requests that panic.
// Mount it inside Recoverer and after Auth to get user fields.
func RequestLogger(l zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				// a panic is logged as a 500 here and re-raised for Recoverer
				p := recover()
				status := ww.Status()
				if p != nil {
					status = http.StatusInternalServerError
				}

				event := l.Info()
				if status >= 500 {
					event = l.Error()
				} else if status >= 400 {
					event = l.Warn()
				}

				event = event.
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", ww.Header().Get(HeaderXRequestID)).
					Str("ip", r.RemoteAddr)

				if id, ok := GetIdentity(r.Context()); ok {
					event = event.Str("user_id", id.ID).Str("role", string(id.Role))
				}
				if p != nil {
					event = event.Bool("panic", true)
				}

				event.Msg("http_request")
				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
