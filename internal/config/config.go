// Package config reads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL string
	Port        string

	LogLevel string
	LogFile  string

	DisableTypesense bool
	TypesenseHost    string
	TypesenseAPIKey  string

	BackupDir        string
	BackupEveryEdits int
	DisableBackups   bool

	MigrateOnStart bool

	WebhookURL string
}

var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Port:            stringOr("PORT", "8080"),
		LogLevel:        stringOr("LOG_LEVEL", "info"),
		LogFile:         os.Getenv("LOG_FILE"),
		TypesenseHost:   os.Getenv("TYPESENSE_HOST"),
		TypesenseAPIKey: os.Getenv("TYPESENSE_API_KEY"),
		BackupDir:       stringOr("BACKUP_DIR", "./backups"),
		WebhookURL:      strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	var err error
	if cfg.DisableTypesense, err = boolOr("DISABLE_TYPESENSE", false); err != nil {
		return nil, err
	}
	if cfg.DisableBackups, err = boolOr("DISABLE_BACKUPS", false); err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart, err = boolOr("MIGRATE_ON_START", true); err != nil {
		return nil, err
	}
	if cfg.BackupEveryEdits, err = intOr("BACKUP_EVERY_EDITS", 100); err != nil {
		return nil, err
	}
	if cfg.BackupEveryEdits < 0 {
		return nil, fmt.Errorf("BACKUP_EVERY_EDITS must not be negative, got %d", cfg.BackupEveryEdits)
	}

	if !cfg.DisableTypesense {
		if cfg.TypesenseAPIKey == "" {
			return nil, errors.New("TYPESENSE_API_KEY environment variable is required (or set DISABLE_TYPESENSE=true)")
		}
		if cfg.TypesenseHost == "" {
			return nil, errors.New("TYPESENSE_HOST environment variable is required (or set DISABLE_TYPESENSE=true)")
		}
	}
	return cfg, nil
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolOr(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func intOr(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
