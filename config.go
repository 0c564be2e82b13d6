package main

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/rs/zerolog/log"
)

// Config is read from the environment (and .env) once at startup.
type Config struct {
	Port          string
	DBPath        string
	PublicDir     string
	AssetPath     string
	ProbeBaseURL  string
	ProbeTimeout  time.Duration
	SessionTTL    time.Duration
	FirstVisitTTL time.Duration
	MaxSessions   int
	AdminUsername string
	AdminPassword string
	SecureCookies bool
}

func loadConfig() Config {
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "portfolio.db"),
		PublicDir:     getEnv("PUBLIC_DIR", "./public"),
		AssetPath:     getEnv("PROFILE_ASSET_PATH", "/profile.jpg"),
		ProbeBaseURL:  os.Getenv("PROBE_BASE_URL"),
		ProbeTimeout:  getDuration("PROBE_TIMEOUT", 5*time.Second),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
		FirstVisitTTL: getDuration("SESSION_FIRST_VISIT_TTL", 15*time.Minute),
		MaxSessions:   getInt("MAX_SESSIONS", 10000),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SecureCookies: os.Getenv("SECURE_COOKIES") == "true",
	}

	// Default credentials for development (remove in production)
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
		log.Warn().Msg("Using default admin username. Set ADMIN_USERNAME environment variable.")
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
		log.Warn().Msg("Using default admin password. Set ADMIN_PASSWORD environment variable.")
	}
	return cfg
}

// probeBaseURL is where the server reaches itself for the asset probe.
func (c Config) probeBaseURL() string {
	if c.ProbeBaseURL != "" {
		return c.ProbeBaseURL
	}
	return "http://127.0.0.1:" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid number, using default")
		return fallback
	}
	return n
}
