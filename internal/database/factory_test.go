package database

import (
	"os"
	"path/filepath"
	"testing"

	"mdage/internal/config"
)

func TestNewHistoryFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewHistoryFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		got.Close()
	})

	t.Run("sqlite database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		got, err := NewHistoryFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dir, HistoryFileName)); err != nil {
			t.Errorf("history file not created: %v", err)
		}
	})

	t.Run("sqlite database without data_dir", func(t *testing.T) {
		got, err := NewHistoryFromConfig(config.DatabaseConfig{Type: "sqlite"})
		if err == nil {
			t.Error("NewHistoryFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewHistoryFromConfig() should return nil on error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewHistoryFromConfig(config.DatabaseConfig{Type: "postgres"}); err == nil {
			t.Error("NewHistoryFromConfig() expected error for unknown type")
		}
	})
}
