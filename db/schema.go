// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS visits (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visits_date ON visits(date);

-- At most one active (unterminated) visit at any time.
CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_single_active
	ON visits(exit_time IS NULL) WHERE exit_time IS NULL;
`

// InitSchema creates all tables and indexes if they don't exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
