package sqlite

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS pairs (
	id TEXT PRIMARY KEY,
	source_id TEXT,
	source_name TEXT NOT NULL DEFAULT '',
	target_id TEXT,
	target_name TEXT NOT NULL DEFAULT '',
	method TEXT NOT NULL,
	confidence REAL NOT NULL,
	created_at DATETIME NOT NULL,
	synced_at DATETIME,
	CHECK (source_id IS NOT NULL OR target_id IS NOT NULL)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_pairs_source_id ON pairs(source_id) WHERE source_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_pairs_target_id ON pairs(target_id) WHERE target_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS snapshots (
	pair_id TEXT PRIMARY KEY,
	a_name TEXT NOT NULL,
	a_description TEXT NOT NULL,
	a_state TEXT NOT NULL,
	a_completed INTEGER NOT NULL,
	a_modified_at DATETIME,
	a_comments INTEGER,
	b_name TEXT NOT NULL,
	b_description TEXT NOT NULL,
	b_state TEXT NOT NULL,
	b_completed INTEGER NOT NULL,
	b_modified_at DATETIME,
	b_comments INTEGER,
	taken_at DATETIME NOT NULL,
	FOREIGN KEY (pair_id) REFERENCES pairs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS changes (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	pair_id TEXT NOT NULL,
	side TEXT NOT NULL,
	field TEXT NOT NULL,
	old_value TEXT NOT NULL,
	new_value TEXT NOT NULL,
	edited_at DATETIME,
	detected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_changes_pair_id ON changes(pair_id);
`

// InitSchema creates all tables and indexes.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
