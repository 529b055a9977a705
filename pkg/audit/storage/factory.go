package storage

import (
	"fmt"
	"log/slog"

	"mercator-hq/carepath/pkg/audit"
	"mercator-hq/carepath/pkg/config"
)

// New creates the storage backend selected by cfg.Backend.
func New(cfg config.AuditConfig, logger *slog.Logger) (audit.Storage, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "sqlite":
		return NewSQLiteStorage(&SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported audit backend %q", cfg.Backend)
	}
}
