// Package config loads settings from the environment, optionally seeded from
// a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// PlaytimePolicy decides which per-game Playtime rows a scan persists.
// Scan totals are accumulated the same way under every policy.
type PlaytimePolicy string

const (
	SaveAll             PlaytimePolicy = "all"
	SaveNonzeroPlatform PlaytimePolicy = "nonzero-platform"
	SaveNonzeroTotal    PlaytimePolicy = "nonzero-total"
	SaveNone            PlaytimePolicy = "none"
)

type Config struct {
	SteamAPIKey    string        `env:"STEAM_API_KEY"`
	DBPath         string        `env:"DB_PATH" default:"data/steamlinuxchecker.db"`
	CallInterval   time.Duration `env:"STEAM_CALL_INTERVAL" default:"3s"`
	HTTPTimeout    time.Duration `env:"STEAM_HTTP_TIMEOUT" default:"10s"`
	IgnoreAppIDs   string        `env:"IGNORE_APPIDS"` // comma or space separated
	SavePlaytime   string        `env:"SAVE_PLAYTIME" default:"all"`
	PersistPrivate bool          `env:"PERSIST_PRIVATE_SCANS" default:"true"`
	Port           int           `env:"PORT" default:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if cfg.CallInterval < 0 {
		return errors.New("STEAM_CALL_INTERVAL must not be negative")
	}
	if cfg.HTTPTimeout <= 0 {
		return errors.New("STEAM_HTTP_TIMEOUT must be positive")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}

	if _, err := parsePolicy(cfg.SavePlaytime); err != nil {
		return err
	}
	if _, err := parseAppIDs(cfg.IgnoreAppIDs); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey fails when no Steam Web API key is configured. Only the
// checker needs one; the report server reads stored data.
func (c *Config) RequireAPIKey() error {
	if c.SteamAPIKey == "" {
		return errors.New("STEAM_API_KEY is required")
	}
	return nil
}

// IgnoredApps is the set of app ids a scan skips.
func (c *Config) IgnoredApps() map[int64]bool {
	ids, _ := parseAppIDs(c.IgnoreAppIDs)
	return ids
}

func (c *Config) PlaytimePolicy() PlaytimePolicy {
	p, _ := parsePolicy(c.SavePlaytime)
	return p
}

// Logger builds the process logger at the configured level.
func (c *Config) Logger() *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
}

func parsePolicy(s string) (PlaytimePolicy, error) {
	switch p := PlaytimePolicy(strings.ToLower(s)); p {
	case SaveAll, SaveNonzeroPlatform, SaveNonzeroTotal, SaveNone:
		return p, nil
	}
	return SaveAll, fmt.Errorf("SAVE_PLAYTIME must be one of all, nonzero-platform, nonzero-total, none; got %q", s)
}

func parseAppIDs(s string) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	for _, field := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("IGNORE_APPIDS: %q is not an app id", field)
		}
		ids[id] = true
	}
	return ids, nil
}
