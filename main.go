package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/rite2rise/web-bff/internal/api"
	"github.com/rite2rise/web-bff/internal/config"
	"github.com/rite2rise/web-bff/internal/downstream"
	"github.com/rite2rise/web-bff/internal/logger"
	"github.com/rite2rise/web-bff/internal/session"
	"github.com/rite2rise/web-bff/internal/tracing"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracing(ctx, tracing.Config{
		ServiceName:    "web-bff",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("tracing init failed")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the limiter fails open, so a missing Redis only weakens rate limiting
			zlog.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup")
		}
	}

	client, err := downstream.NewAPIClient(cfg.APIBaseURL, downstream.NewClient(downstream.ClientConfig{
		ReadTimeout:  cfg.DownstreamReadTimeout,
		WriteTimeout: cfg.DownstreamWriteTimeout,
	}))
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid api client")
	}

	store := session.NewStore(cfg.SessionIdleTTL)
	go store.Run(ctx, time.Minute)

	coord := session.NewCoordinator(client, session.Strategy(cfg.RegistrationStrategy))

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(cfg, api.Deps{
			API:         client,
			Store:       store,
			Coordinator: coord,
			Redis:       rdb,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zlog.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("web-bff starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("http shutdown")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("tracer shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
