// Package config assembles runtime settings from a .env file and the
// process environment, with defaults good enough for local use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const xdgAppName = "taskpro"

type Config struct {
	// Remote backend selection: "rest" (default when a URL is set),
	// "postgres", or "none" for local-only operation.
	Backend     string
	RemoteURL   string
	RemoteKey   string
	PostgresDSN string
	// UserID scopes the postgres backend; the rest backend derives it from
	// the session token instead.
	UserID string

	DataDir    string
	ServerAddr string

	SyncMinInterval    time.Duration
	SyncActiveInterval time.Duration
	SyncIdleInterval   time.Duration
	ReconcileInterval  time.Duration
	KPIMemoTTL         time.Duration
}

// Load reads .env if present, then the environment. Only the backend choice
// needs matching settings; everything else has a default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	dataDir := os.Getenv("TASKPRO_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(home, ".config", xdgAppName)
	}

	cfg := &Config{
		Backend:     os.Getenv("TASKPRO_BACKEND"),
		RemoteURL:   os.Getenv("TASKPRO_REMOTE_URL"),
		RemoteKey:   os.Getenv("TASKPRO_REMOTE_KEY"),
		PostgresDSN: os.Getenv("TASKPRO_POSTGRES_DSN"),
		UserID:      os.Getenv("TASKPRO_USER_ID"),
		DataDir:     dataDir,
		ServerAddr:  getenv("TASKPRO_ADDR", ":8787"),

		SyncMinInterval:    duration("TASKPRO_SYNC_MIN_INTERVAL", 3*time.Second),
		SyncActiveInterval: duration("TASKPRO_SYNC_ACTIVE_INTERVAL", 5*time.Second),
		SyncIdleInterval:   duration("TASKPRO_SYNC_IDLE_INTERVAL", 5*time.Minute),
		ReconcileInterval:  duration("TASKPRO_RECONCILE_INTERVAL", 30*time.Second),
		KPIMemoTTL:         duration("TASKPRO_KPI_MEMO_TTL", 3*time.Second),
	}

	if cfg.Backend == "" {
		if cfg.RemoteURL != "" {
			cfg.Backend = "rest"
		} else {
			cfg.Backend = "none"
		}
	}
	switch cfg.Backend {
	case "rest":
		if cfg.RemoteURL == "" || cfg.RemoteKey == "" {
			return nil, fmt.Errorf("TASKPRO_REMOTE_URL and TASKPRO_REMOTE_KEY must be set for the rest backend")
		}
	case "postgres":
		if cfg.PostgresDSN == "" || cfg.UserID == "" {
			return nil, fmt.Errorf("TASKPRO_POSTGRES_DSN and TASKPRO_USER_ID must be set for the postgres backend")
		}
	case "none":
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}

// CachePath is where the local fallback store lives.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
