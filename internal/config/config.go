package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Registration success strategies. "trust" keeps the optimistic overlay until
// the next refresh, "refresh" re-fetches the event list right away.
const (
	StrategyTrust   = "trust"
	StrategyRefresh = "refresh"
)

type Config struct {
	AppEnv string
	Port   string

	// External Rite2Rise API, e.g. "https://api.rite2rise.org/api/"
	APIBaseURL string

	// JWT: when empty, tokens are decoded without signature verification and
	// the external API stays the only authority.
	JWTSecret string

	TokenCookie  string
	CookieSecure bool

	SessionIdleTTL time.Duration

	DownstreamReadTimeout  time.Duration
	DownstreamWriteTimeout time.Duration

	RegistrationStrategy string

	CORSAllowedOrigins []string

	// Redis (optional, rate limiting)
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Rate limit
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	// Tracing
	OTELEnabled  bool
	OTLPEndpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Port = getEnv("HTTP_PORT", "8080")

	cfg.APIBaseURL = getEnv("API_BASE_URL", "http://localhost:5000/api/")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	cfg.TokenCookie = getEnv("TOKEN_COOKIE", "token")
	cfg.CookieSecure = getBool("COOKIE_SECURE", cfg.AppEnv != "dev")

	cfg.SessionIdleTTL = getDuration("SESSION_IDLE_TTL", 30*time.Minute)

	cfg.DownstreamReadTimeout = getDuration("DOWNSTREAM_READ_TIMEOUT", 3*time.Second)
	cfg.DownstreamWriteTimeout = getDuration("DOWNSTREAM_WRITE_TIMEOUT", 5*time.Second)

	cfg.RegistrationStrategy = strings.ToLower(getEnv("REGISTRATION_STRATEGY", StrategyTrust))

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPass = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getInt("REDIS_DB", 0)

	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLLimit = getInt("RL_REQUESTS_LIMIT", 120)
	cfg.RLWindow = time.Duration(getInt("RL_WINDOW_SECONDS", 60)) * time.Second

	cfg.OTELEnabled = getBool("OTEL_ENABLED", false)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL %q", c.APIBaseURL)
	}
	// endpoint paths are relative ("user/AllEvents"), so the base must end in "/"
	if !strings.HasSuffix(c.APIBaseURL, "/") {
		c.APIBaseURL += "/"
	}

	switch c.RegistrationStrategy {
	case StrategyTrust, StrategyRefresh:
	default:
		return fmt.Errorf("invalid REGISTRATION_STRATEGY %q: must be %q or %q",
			c.RegistrationStrategy, StrategyTrust, StrategyRefresh)
	}

	if c.TokenCookie == "" {
		return fmt.Errorf("TOKEN_COOKIE must not be empty")
	}
	if c.RLEnabled && (c.RLLimit <= 0 || c.RLWindow <= 0) {
		return fmt.Errorf("rate limit enabled with non-positive limit or window")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		// prefer failing fast over silent misconfig
		panic(fmt.Errorf("invalid boolean env %s=%q", k, v))
	}
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
