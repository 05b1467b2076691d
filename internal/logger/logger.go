package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rite2rise/web-bff/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var Log = zerolog.Nop()

func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	format := os.Getenv("LOG_FORMAT") // "json" or "console"
	if format == "" {
		format = "console"
	}

	var l zerolog.Logger
	if format == "json" {
		l = zerolog.New(w).With().Timestamp().Str("service", "web-bff").Logger().Level(level)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger().Level(level)
	}

	Log = l
	zlog.Logger = l
}

// Ctx returns a logger carrying the request id and acting user when present.
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := Log.With()
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		lc = lc.Str("request_id", reqID)
	}
	if id, ok := middleware.GetIdentity(ctx); ok {
		lc = lc.Str("user_id", id.ID)
	}
	l := lc.Logger()
	return &l
}
