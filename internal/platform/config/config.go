package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the notebook server and CLI.
type Config struct {
	DBPath        string
	ServerPort    int
	LogLevel      string
	Environment   string
	SentryDSN     string
	AdminPassword string
	SessionTTL    time.Duration
	CookieSecure  bool
	SiteTitle     string
	RateLimit     RateLimitConfig
	ShutdownGrace time.Duration
}

// RateLimitConfig configures the per-client token bucket applied to HTTP requests.
type RateLimitConfig struct {
	Burst     int
	PerSecond float64
	ClientTTL time.Duration
}

const (
	defaultDBPath        = "./data/notebook.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultSessionTTL    = 24 * time.Hour
	defaultSiteTitle     = "Notebook"
	defaultRateBurst     = 30
	defaultRatePerSecond = 10.0
	defaultRateClientTTL = 10 * time.Minute
	defaultShutdownGrace = 10 * time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		Environment:   getEnv("ENV", defaultEnvironment),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SiteTitle:     getEnv("SITE_TITLE", defaultSiteTitle),
	}

	var err error

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	cfg.ServerPort, err = strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, eris.Errorf("invalid SERVER_PORT value: %s", portValue)
	}

	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = durationEnv("SHUTDOWN_GRACE", defaultShutdownGrace); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = durationEnv("RATE_LIMIT_CLIENT_TTL", defaultRateClientTTL); err != nil {
		return nil, err
	}

	cookieValue := getEnv("COOKIE_SECURE", "false")
	cfg.CookieSecure, err = strconv.ParseBool(cookieValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid COOKIE_SECURE value: %s", cookieValue)
	}

	burstValue := getEnv("RATE_LIMIT_BURST", strconv.Itoa(defaultRateBurst))
	cfg.RateLimit.Burst, err = strconv.Atoi(burstValue)
	if err != nil || cfg.RateLimit.Burst <= 0 {
		return nil, eris.Errorf("invalid RATE_LIMIT_BURST value: %s", burstValue)
	}

	rateValue := getEnv("RATE_LIMIT_RPS", strconv.FormatFloat(defaultRatePerSecond, 'f', -1, 64))
	cfg.RateLimit.PerSecond, err = strconv.ParseFloat(rateValue, 64)
	if err != nil || cfg.RateLimit.PerSecond <= 0 {
		return nil, eris.Errorf("invalid RATE_LIMIT_RPS value: %s", rateValue)
	}

	return cfg, nil
}

// Validate checks the settings only the HTTP server needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AdminPassword) == "" {
		return eris.New("ADMIN_PASSWORD must be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	if value <= 0 {
		return 0, eris.Errorf("invalid %s value: %s", key, raw)
	}
	return value, nil
}
