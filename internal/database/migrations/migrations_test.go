package migrations

import (
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	for _, table := range []string{"operations", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}

	if _, err := db.Exec(`INSERT INTO operations (id, session_id, kind, status, started_at, finished_at, blocks)
		VALUES ('op-1', 's', 'encrypt', 'ok', datetime('now'), datetime('now'), 2)`); err != nil {
		t.Errorf("inserting operation: %v", err)
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	db := openTestDB(t)

	err := CheckDBMigrationStatus(db)
	if err == nil || !strings.Contains(err.Error(), "needs migration") {
		t.Fatalf("CheckDBMigrationStatus() on fresh database = %v, want needs migration", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration = %v", err)
	}

	current, latest, dirty, err := Status(db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if current != latest || current != 2 || dirty {
		t.Errorf("Status() = %d, %d, %v; want 2, 2, false", current, latest, dirty)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() error = %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() error = %v", err)
	}
}

func TestSchema_StatusConstraint(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	_, err := db.Exec(`INSERT INTO operations (id, session_id, kind, status, started_at, finished_at)
		VALUES ('op-1', 's', 'encrypt', 'maybe', datetime('now'), datetime('now'))`)
	if err == nil {
		t.Error("expected CHECK constraint violation for unknown status")
	}
}
