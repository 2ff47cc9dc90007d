// Package config loads server settings from an optional TOML file and the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
)

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
)

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	Auth      AuthConfig      `toml:"auth"`
	Analytics AnalyticsConfig `toml:"analytics"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	Env            string   `toml:"env"`
	LogLevel       string   `toml:"log_level"`
	PrettyLogs     bool     `toml:"pretty_logs"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type StoreConfig struct {
	Backend    string `toml:"backend"`
	ProjectID  string `toml:"project_id"`
	SQLitePath string `toml:"sqlite_path"`
}

type AuthConfig struct {
	SkipAuth bool `toml:"skip_auth"`
	// LocalUserID is the identity injected when auth is skipped.
	LocalUserID string `toml:"local_user_id"`
}

type AnalyticsConfig struct {
	SuggestionLimit       int    `toml:"suggestion_limit"`
	MaxSuggestionLimit    int    `toml:"max_suggestion_limit"`
	SuggestionHistoryDays int    `toml:"suggestion_history_days"`
	RiskHistoryDays       int    `toml:"risk_history_days"`
	DefaultLanguage       string `toml:"default_language"`
	// Timezone is the IANA zone used to read calendar facts when a request
	// does not carry its own offset.
	Timezone string `toml:"timezone"`
}

// Location resolves Timezone, falling back to UTC when it is empty or unknown.
func (a AnalyticsConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:     8111,
			Env:      "production",
			LogLevel: "info",
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:1234",
			},
		},
		Store: StoreConfig{
			Backend:    BackendFirestore,
			ProjectID:  "lemon-beta",
			SQLitePath: "lemon.db",
		},
		Auth: AuthConfig{
			LocalUserID: "local-dev-user",
		},
		Analytics: AnalyticsConfig{
			SuggestionLimit:       5,
			MaxSuggestionLimit:    20,
			SuggestionHistoryDays: 90,
			RiskHistoryDays:       37,
			DefaultLanguage:       "en",
			Timezone:              "UTC",
		},
	}
}

// IsLocal reports whether the server runs in local development mode.
func (c Config) IsLocal() bool {
	return c.Server.Env == "local"
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("ENV"); ok && v != "" {
		c.Server.Env = v
		if v == "local" && c.Store.Backend == BackendFirestore {
			c.Store.Backend = BackendMemory
		}
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Server.LogLevel = v
	}
	if v, ok := lookup("GOOGLE_CLOUD_PROJECT"); ok && v != "" {
		c.Store.ProjectID = v
	}
	if v, ok := lookup("SQLITE_PATH"); ok && v != "" {
		c.Store.Backend = BackendSQLite
		c.Store.SQLitePath = v
	}
	if v, ok := lookup("USE_MEMORY_STORE"); ok && v == "true" {
		c.Store.Backend = BackendMemory
	}
	if v, ok := lookup("SKIP_AUTH"); ok && v == "true" {
		c.Auth.SkipAuth = true
	}
	if v, ok := lookup("TIMEZONE"); ok && v != "" {
		c.Analytics.Timezone = v
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Store.Backend {
	case BackendFirestore:
		if c.Store.ProjectID == "" {
			return fmt.Errorf("store.project_id is required for the firestore backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	a := c.Analytics
	if a.SuggestionLimit <= 0 || a.MaxSuggestionLimit < a.SuggestionLimit {
		return fmt.Errorf("analytics.suggestion_limit must be in 1..%d", a.MaxSuggestionLimit)
	}
	if a.SuggestionHistoryDays <= 0 || a.RiskHistoryDays <= 0 {
		return fmt.Errorf("analytics history windows must be positive")
	}
	if a.Timezone != "" {
		if _, err := time.LoadLocation(a.Timezone); err != nil {
			return fmt.Errorf("invalid analytics.timezone %q: %w", a.Timezone, err)
		}
	}
	return nil
}
