package db

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the version recorded for databases created from SchemaSQL.
const SchemaVersion = 2

// migration upgrades a database from version-1 to version.
type migration struct {
	version int
	stmt    string
}

// migrations holds every upgrade step after version 1, in order.
var migrations = []migration{
	// Rows written before version 2 read as explicitly assigned.
	{version: 2, stmt: `ALTER TABLE work_items ADD COLUMN sla_policy_pinned INTEGER NOT NULL DEFAULT 0`},
}

// InitSchema creates the schema on a fresh database, or upgrades an older
// one, and records its version. Databases at SchemaVersion or newer are left
// untouched.
func InitSchema(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	if currentVersion >= SchemaVersion {
		return nil
	}

	tx, err := database.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if currentVersion == 0 {
		if _, err := tx.Exec(SchemaSQL); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	} else {
		for _, m := range migrations {
			if m.version <= currentVersion {
				continue
			}
			if _, err := tx.Exec(m.stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
			}
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}
