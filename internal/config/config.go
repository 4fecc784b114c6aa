package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the configuration of the example servers.
type Config struct {
	Port           string
	CSRFSecrets    []string // newest first
	CookieSecure   bool
	AllowedOrigins []string
	Environment    string // development, staging, production
	LogLevel       string
	LogFormat      string // json or text

	// Set while loading, reported by LogStartup once a logger exists.
	EnvFileLoaded  bool
	UsingDevSecret bool
}

// Load loads configuration from a .env file and environment variables
// and validates it.
func Load() (*Config, error) {
	// Load .env file if it exists
	envFileLoaded := godotenv.Load() == nil

	cfg := &Config{
		EnvFileLoaded:  envFileLoaded,
		Port:           getEnv("PORT", "8080"),
		CSRFSecrets:    splitList(getEnv("CSRF_SECRETS", "")),
		CookieSecure:   getBool("COOKIE_SECURE", true),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if c.IsProduction() {
		if len(c.CSRFSecrets) == 0 {
			return fmt.Errorf("CSRF_SECRETS must be set in production")
		}
		// only the signing secret has to be strong, older ones are on their way out
		if len(c.CSRFSecrets[0]) < 32 {
			return fmt.Errorf("the first CSRF secret must be at least 32 characters in production (got %d)", len(c.CSRFSecrets[0]))
		}
		if !c.CookieSecure {
			return fmt.Errorf("COOKIE_SECURE cannot be disabled in production")
		}
	} else if len(c.CSRFSecrets) == 0 {
		c.CSRFSecrets = []string{"dev-secret-not-for-production"}
		c.UsingDevSecret = true
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// LogStartup reports how the configuration was assembled.
func (c *Config) LogStartup(logger *slog.Logger) {
	if !c.EnvFileLoaded {
		logger.Info("no .env file found, using environment variables")
	}
	if c.UsingDevSecret {
		logger.Warn("using default CSRF secret for development", slog.String("environment", c.Environment))
	}
}

// NewLogger builds the slog logger described by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(c.LogLevel),
		AddSource: c.LogLevel == "debug",
	}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
