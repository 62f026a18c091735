// Package config handles server configuration: defaults, an optional .env
// file plus VOYAGE_* environment variables, and command-line flags, applied
// in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the voyage report server.
//
// Fields:
//   - Port: HTTP listen port.
//   - DBPath: SQLite database path; ":memory:" for a throwaway database.
//   - LogLevel / LogFormat: slog level (debug|info|warn|error) and handler (json|text).
//   - AllowedOrigins: CORS origins for the submission UI.
//   - SeedScenario: demo scenario loaded at startup when the database is empty ("" disables).
//   - ReviewInterval: how often to scan for reports awaiting review too long (0 disables).
//   - ReviewMaxAge: how long a report may stay pending before it is flagged.
type Config struct {
	Port           int
	DBPath         string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	SeedScenario   string
	ReviewInterval time.Duration
	ReviewMaxAge   time.Duration
}

// Environment variable names.
const (
	EnvFile           = "VOYAGE_ENV_FILE"
	EnvPort           = "VOYAGE_PORT"
	EnvDBPath         = "VOYAGE_DB_PATH"
	EnvLogLevel       = "VOYAGE_LOG_LEVEL"
	EnvLogFormat      = "VOYAGE_LOG_FORMAT"
	EnvAllowedOrigins = "VOYAGE_ALLOWED_ORIGINS"
	EnvSeedScenario   = "VOYAGE_SEED_SCENARIO"
	EnvReviewInterval = "VOYAGE_REVIEW_INTERVAL"
	EnvReviewMaxAge   = "VOYAGE_REVIEW_MAX_AGE"
)

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Port = 8080
	c.DBPath = "voyage.db"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	c.SeedScenario = ""
	c.ReviewInterval = 15 * time.Minute
	c.ReviewMaxAge = 24 * time.Hour
}

// Load builds a Config from defaults, then the .env file (path from
// VOYAGE_ENV_FILE, default ".env", missing file is fine) overlaid by the
// process environment, then args.
func Load(args []string) (*Config, error) {
	path := os.Getenv(EnvFile)
	if path == "" {
		path = ".env"
	}

	fileVars, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}
	return load(args, lookup)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.applyFlags(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.LogFormat = v
	}
	if v, ok := lookup(EnvAllowedOrigins); ok && v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup(EnvSeedScenario); ok {
		c.SeedScenario = v
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{EnvReviewInterval, &c.ReviewInterval},
		{EnvReviewMaxAge, &c.ReviewMaxAge},
	} {
		if v, ok := lookup(d.key); ok && v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
			}
			*d.dst = parsed
		}
	}
	return nil
}

// applyFlags overlays command-line flags:
//
//	-port int        HTTP server port
//	-db string       SQLite database path
//	-log-level       debug|info|warn|error
//	-log-format      json|text
//	-origins string  comma-separated CORS origins
//	-seed string     demo scenario to load into an empty database
//	-review-interval pending-review scan interval (0 disables)
//	-review-max-age  age at which a pending report is overdue
func (c *Config) applyFlags(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.IntVar(&c.Port, "port", c.Port, "HTTP server port")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "SQLite database path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format (json|text)")
	origins := fs.String("origins", strings.Join(c.AllowedOrigins, ","), "comma-separated CORS origins")
	fs.StringVar(&c.SeedScenario, "seed", c.SeedScenario, "demo scenario to load into an empty database")
	fs.DurationVar(&c.ReviewInterval, "review-interval", c.ReviewInterval, "pending-review scan interval (0 disables)")
	fs.DurationVar(&c.ReviewMaxAge, "review-max-age", c.ReviewMaxAge, "age at which a pending report is overdue")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c.AllowedOrigins = splitList(*origins)
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReviewInterval < 0 || c.ReviewMaxAge <= 0 {
		return fmt.Errorf("invalid review schedule: interval %v, max age %v", c.ReviewInterval, c.ReviewMaxAge)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
