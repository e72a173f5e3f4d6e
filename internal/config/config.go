// Package config provides centralized configuration loaded from environment
// variables. Shared by the serve and run commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Notification windows — country, IANA timezone, local target time
// --------------------------------------------------------------------------

// CountryWindow configures the evening notification window for one country.
// A country is eligible for segment-gated sends while its local time is in
// the target hour at or past the target minute, or in the following hour
// before minute 30.
type CountryWindow struct {
	Country  string
	Timezone string
	Hour     int
	Minute   int
}

// defaultWindows is the built-in window table, overridable via NOTIFY_WINDOWS.
var defaultWindows = []CountryWindow{
	{Country: "US", Timezone: "America/New_York", Hour: 20, Minute: 30},
	{Country: "BR", Timezone: "America/Sao_Paulo", Hour: 20, Minute: 30},
	{Country: "GB", Timezone: "Europe/London", Hour: 20, Minute: 30},
	{Country: "DE", Timezone: "Europe/Berlin", Hour: 20, Minute: 30},
	{Country: "IN", Timezone: "Asia/Kolkata", Hour: 20, Minute: 30},
	{Country: "JP", Timezone: "Asia/Tokyo", Hour: 20, Minute: 30},
}

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting (ops API)
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Push delivery
	PushEndpoint    string
	PushAPIKey      string
	PushTimeout     time.Duration
	PushSendsPerSec int

	// Orchestration
	NotifyWindows    []CountryWindow
	DispatchWorkers  int
	RunTimeout       time.Duration
	CronSpec         string
	SchedulerEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	windows, err := parseWindows(os.Getenv("NOTIFY_WINDOWS"))
	if err != nil {
		return nil, fmt.Errorf("parse NOTIFY_WINDOWS: %w", err)
	}
	if len(windows) == 0 {
		windows = defaultWindows
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		PushEndpoint:    envOr("PUSH_ENDPOINT", ""),
		PushAPIKey:      envOr("PUSH_API_KEY", ""),
		PushTimeout:     time.Duration(envInt("PUSH_TIMEOUT_SECONDS", 10)) * time.Second,
		PushSendsPerSec: envInt("PUSH_SENDS_PER_SEC", 50),

		NotifyWindows:    windows,
		DispatchWorkers:  envInt("DISPATCH_WORKERS", 4),
		RunTimeout:       time.Duration(envInt("RUN_TIMEOUT_MINUTES", 25)) * time.Minute,
		CronSpec:         envOr("RUN_CRON_SPEC", "*/30 * * * *"),
		SchedulerEnabled: envBool("SCHEDULER_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// parseWindows parses a window table of the form
// "US=America/New_York@20:30,BR=America/Sao_Paulo@20:30".
// An empty input returns nil (caller falls back to the defaults).
func parseWindows(raw string) ([]CountryWindow, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var windows []CountryWindow
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		country, rest, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q: want COUNTRY=ZONE@HH:MM", part)
		}
		zone, at, ok := strings.Cut(rest, "@")
		if !ok {
			return nil, fmt.Errorf("entry %q: want COUNTRY=ZONE@HH:MM", part)
		}
		hh, mm, ok := strings.Cut(at, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q: target time %q: want HH:MM", part, at)
		}

		hour, err := strconv.Atoi(hh)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("entry %q: bad hour %q", part, hh)
		}
		minute, err := strconv.Atoi(mm)
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("entry %q: bad minute %q", part, mm)
		}

		windows = append(windows, CountryWindow{
			Country:  strings.ToUpper(strings.TrimSpace(country)),
			Timezone: strings.TrimSpace(zone),
			Hour:     hour,
			Minute:   minute,
		})
	}
	return windows, nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
