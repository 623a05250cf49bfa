package database

import (
	"fmt"
	"os"
	"path/filepath"

	"mdage/internal/config"
	"mdage/internal/mdage"
)

// HistoryFileName is the database file inside data_dir.
const HistoryFileName = "history.db"

// NewHistoryFromConfig creates a History implementation based on the database config type.
func NewHistoryFromConfig(cfg config.DatabaseConfig) (mdage.History, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		h, err := NewSQLiteHistory(filepath.Join(cfg.DataDir, HistoryFileName))
		if err != nil {
			return nil, err
		}
		return h, nil
	case "memory":
		h, err := NewSQLiteHistory(":memory:")
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
