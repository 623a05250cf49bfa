package testutil

import (
	"testing"

	"mdage/internal/database"
)

// NewTestHistory creates an in-memory SQLite operation history with the
// schema applied. It is closed when the test completes.
func NewTestHistory(t *testing.T) *database.SQLiteHistory {
	t.Helper()

	h, err := database.NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open history database: %v", err)
	}
	t.Cleanup(func() {
		h.Close()
	})
	return h
}
