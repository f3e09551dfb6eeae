package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const defaultJWTSecret = "dev-secret-change-in-production"

type Config struct {
	Port           string
	Env            string
	DatabaseDriver string
	DatabaseDSN    string
	JWTSecret      string
	JWTExpiry      time.Duration
	MediaRoot      string
	MediaURL       string
	MaxUploadBytes int64
	AuthRateLimit  float64
	AuthRateBurst  int
}

func Load() Config {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		DatabaseDriver: getEnv("DB_DRIVER", "mysql"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/medtrack?parseTime=true"),
		JWTSecret:      getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiry:      parseDuration(getEnv("JWT_EXPIRY", "24h"), 24*time.Hour),
		MediaRoot:      getEnv("MEDIA_ROOT", "media"),
		MediaURL:       getEnv("MEDIA_URL", "/media/"),
		MaxUploadBytes: parseInt64(getEnv("MAX_UPLOAD_BYTES", ""), 10<<20),
		AuthRateLimit:  parseFloat(getEnv("AUTH_RATE_LIMIT", ""), 5),
		AuthRateBurst:  int(parseInt64(getEnv("AUTH_RATE_BURST", ""), 10)),
	}

	if cfg.Env == "production" && cfg.JWTSecret == defaultJWTSecret {
		slog.Error("JWT_SECRET must be set in production environment")
		os.Exit(1)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
