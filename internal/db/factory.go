package db

import (
	"strings"
)

// StoreConfig holds configuration for the storage backend.
type StoreConfig struct {
	Type             string // "sqlite" or "postgres"
	ConnectionString string // File path for SQLite, DSN for Postgres
}

// ParseDatabaseURL derives a StoreConfig from a DATABASE_URL value.
// postgres:// and postgresql:// select the Postgres backend; everything else
// is treated as a SQLite file path. The sqlite:// prefix forms used by other
// tooling are accepted and stripped.
func ParseDatabaseURL(url string) StoreConfig {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return StoreConfig{Type: "postgres", ConnectionString: url}
	case strings.HasPrefix(url, "sqlite:///"):
		return StoreConfig{Type: "sqlite", ConnectionString: strings.TrimPrefix(url, "sqlite:///")}
	case strings.HasPrefix(url, "sqlite://"):
		return StoreConfig{Type: "sqlite", ConnectionString: strings.TrimPrefix(url, "sqlite://")}
	default:
		return StoreConfig{Type: "sqlite", ConnectionString: url}
	}
}

// NewStore creates a Store instance based on the provided configuration.
func NewStore(config StoreConfig) (Store, error) {
	switch strings.ToLower(config.Type) {
	case "postgres", "postgresql":
		return NewPostgresStore(config.ConnectionString)
	default:
		if config.ConnectionString == "" {
			config.ConnectionString = "./tasks.db"
		}
		return NewSQLiteStore(config.ConnectionString)
	}
}
