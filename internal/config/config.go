package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr       = ":8080"
	defaultDatabaseURL    = "file:homestay.db?_pragma=busy_timeout(5000)"
	defaultJWTSecret      = "change-me-jwt-secret"
	defaultJWTTTL         = "24h"
	defaultHoldTTL        = "15m"
	defaultSweepInterval  = "1m"
	defaultSweepBatch     = "500"
	defaultTimezone       = "Asia/Kathmandu"
	defaultCurrency       = "NPR"
	defaultEventBuffer    = "1024"
	defaultEventsChannel  = "homestay:events"
	defaultSweeperEnabled = "true"
	defaultRedisDB        = "0"
	defaultIdempotencyTTL = "24h"
	defaultCORSOrigins    = "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000,http://127.0.0.1:5173"
)

type Config struct {
	AppEnv             string
	HTTPAddr           string
	DatabaseURL        string
	JWTSecret          string
	JWTTTL             time.Duration
	HoldTTL            time.Duration
	SweepInterval      time.Duration
	SweepBatchSize     int
	SweeperEnabled     bool
	Timezone           string
	Location           *time.Location
	DefaultCurrency    string
	ChannelCommissions map[string]float64
	EventBufferSize    int
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	EventsChannel      string
	IdempotencyTTL     time.Duration
	CORSAllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured when present but never required.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("config: loaded .env")
	}

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.Timezone = strings.TrimSpace(getEnv("DEFAULT_TIMEZONE", defaultTimezone))
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(getEnv("DEFAULT_CURRENCY", defaultCurrency)))
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.EventsChannel = strings.TrimSpace(getEnv("EVENTS_CHANNEL", defaultEventsChannel))
	cfg.SweeperEnabled = parseBoolEnv("HOLD_SWEEPER_ENABLED", defaultSweeperEnabled)
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins))

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.HoldTTL, err = parseDurationEnv("HOLD_TTL", defaultHoldTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("HOLD_SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.SweepBatchSize, err = parseIntEnv("HOLD_SWEEP_BATCH", defaultSweepBatch); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return nil, err
	}
	if cfg.EventBufferSize, err = parseIntEnv("EVENT_BUFFER_SIZE", defaultEventBuffer); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", defaultRedisDB); err != nil {
		return nil, err
	}
	if cfg.ChannelCommissions, err = parseCommissions(os.Getenv("CHANNEL_COMMISSIONS")); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config: env=%s hold_ttl=%s sweep_interval=%s timezone=%s currency=%s redis=%t",
		cfg.AppEnv, cfg.HoldTTL, cfg.SweepInterval, cfg.Timezone, cfg.DefaultCurrency, cfg.RedisAddr != "")

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be > 0")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("HOLD_SWEEP_INTERVAL must be > 0")
	}
	if cfg.SweepBatchSize <= 0 {
		return fmt.Errorf("HOLD_SWEEP_BATCH must be > 0")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.EventBufferSize <= 0 {
		return fmt.Errorf("EVENT_BUFFER_SIZE must be > 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if len(cfg.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if strings.HasPrefix(cfg.DatabaseURL, "file:") {
			return fmt.Errorf("in prod/release DATABASE_URL must point to PostgreSQL")
		}
	}

	return nil
}

// parseCommissions reads "OTA=15,MARKETPLACE=10" into percentages per channel.
func parseCommissions(raw string) (map[string]float64, error) {
	out := make(map[string]float64)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, pct, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid CHANNEL_COMMISSIONS entry %q, expected CODE=PERCENT", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil || v < 0 || v > 100 {
			return nil, fmt.Errorf("invalid CHANNEL_COMMISSIONS percent for %q", code)
		}
		out[strings.ToUpper(strings.TrimSpace(code))] = v
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
