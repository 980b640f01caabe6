// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
package sqlite_test

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/slaengine/internal/db"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory database with the authoritative schema.
// The pool is pinned to one connection so every query sees the same database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedWorkItem inserts a test work item and returns its ID.
func seedWorkItem(t *testing.T, db *sql.DB, id, serviceType string) string {
	t.Helper()
	if id == "" {
		id = "WI-001"
	}
	var st any
	if serviceType != "" {
		st = serviceType
	}
	_, err := db.Exec("INSERT INTO work_items (id, current_state, service_type) VALUES (?, 'New', ?)", id, st)
	if err != nil {
		t.Fatalf("failed to seed work item: %v", err)
	}
	return id
}

// seedUser inserts a test user holding role.
func seedUser(t *testing.T, db *sql.DB, id, email, role string, enabled bool) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO users (id, email, enabled) VALUES (?, ?, ?)", id, email, enabled); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if role == "" {
		return
	}
	if _, err := db.Exec("INSERT INTO user_roles (user_id, role) VALUES (?, ?)", id, role); err != nil {
		t.Fatalf("failed to seed user role: %v", err)
	}
}
