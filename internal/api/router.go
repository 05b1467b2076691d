package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rite2rise/web-bff/internal/api/handlers"
	"github.com/rite2rise/web-bff/internal/config"
	"github.com/rite2rise/web-bff/internal/downstream"
	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/logger"
	"github.com/rite2rise/web-bff/internal/session"
	"github.com/rite2rise/web-bff/middleware"
)

// baseMiddleware is the stack every route runs through, outermost first.
// Recoverer wraps everything so a panic in any middleware still gets a 500;
// identity is resolved ahead of the logger so log lines carry the user.
func baseMiddleware(cfg *config.Config, decoder *middleware.TokenDecoder) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		chimiddleware.Recoverer,
		middleware.RequestID,
		middleware.Auth(decoder, cfg.TokenCookie),
		middleware.RequestLogger(logger.Log),
		middleware.SecurityHeaders,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderXRequestID},
			ExposedHeaders:   []string{middleware.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Metrics,
	}
	if cfg.OTELEnabled {
		mws = append(mws, middleware.Tracing("web-bff"))
	}
	return mws
}

// Deps are the long-lived collaborators the routes are built on.
type Deps struct {
	API         *downstream.APIClient
	Store       *session.Store
	Coordinator *session.Coordinator
	Redis       *redis.Client // optional
}

func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	decoder := middleware.NewTokenDecoder(cfg.JWTSecret)

	r.Use(baseMiddleware(cfg, decoder)...)

	readiness := []handlers.ReadinessChecker{
		handlers.NewHTTPReadinessChecker("rite2rise-api", deps.API.BaseURL()),
	}
	if deps.Redis != nil {
		readiness = append(readiness, handlers.NewRedisReadinessChecker(deps.Redis))
	}
	health := handlers.NewReadinessHandler(readiness...)

	r.Get("/api/healthz", health.Healthz)
	r.Get("/api/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	authH := handlers.NewAuthHandler(deps.API, decoder, deps.Store, handlers.CookieConfig{
		Name:   cfg.TokenCookie,
		Secure: cfg.CookieSecure,
	})
	eventsH := handlers.NewEventsHandler(deps.Store, deps.Coordinator)
	providerH := handlers.NewProviderHandler(deps.API)
	adminH := handlers.NewAdminHandler(deps.API)

	r.Group(func(r chi.Router) {
		if cfg.RLEnabled {
			r.Use(middleware.RateLimit(deps.Redis, cfg.RLLimit, cfg.RLWindow))
		}

		r.Post("/api/auth/{role}/login", authH.Login)
		r.Post("/api/auth/{role}/signup", authH.Signup)
		r.Post("/api/auth/logout", authH.Logout)
		r.Get("/api/me", authH.Me)

		r.Get("/api/events", eventsH.ListEvents)
		r.Get("/api/events/{id}", eventsH.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleUser))
			r.Post("/api/events/refresh", eventsH.RefreshEvents)
			r.Post("/api/events/{id}/register", eventsH.Register)
			r.Post("/api/events/{id}/unregister", eventsH.Unregister)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleServiceProvider))
			r.Get("/api/provider/events", providerH.ListEvents)
			r.Post("/api/provider/events", providerH.CreateEvent)
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Get("/providers/unapproved", adminH.UnapprovedProviders)
			r.Get("/providers/approved", adminH.ApprovedProviders)
			r.Post("/providers/{id}/approve", adminH.ApproveProvider)
			r.Post("/providers/{id}/disapprove", adminH.NotImplemented)
			r.Delete("/users/{id}", adminH.NotImplemented)
			r.Delete("/events/{id}", adminH.NotImplemented)
		})
	})

	logger.Log.Info().
		Str("api", deps.API.BaseURL()).
		Str("strategy", string(deps.Coordinator.Strategy())).
		Bool("redis", deps.Redis != nil).
		Msg("routes mounted")

	return r
}
