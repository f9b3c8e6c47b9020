// Package db opens the single-writer, many-reader SQLite-compatible store
// and bootstraps its schema.
package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// Connect opens the database at path, tuning it for the single-writer/
// many-reader access pattern described in spec.md §5: one writer connection,
// WAL journaling so readers aren't blocked by in-flight writes.
func Connect(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	log.Println("database connected")
	return conn, nil
}

// schema is the full set of tables from spec.md §6. Schema migrations proper
// are out of scope (spec.md §1); this is a single idempotent bootstrap,
// matching the teacher's own "CREATE TABLE IF NOT EXISTS" idiom in
// db.Migrate before it walks versioned migration files.
const schema = `
CREATE TABLE IF NOT EXISTS hubs (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	display_name_ci TEXT NOT NULL,
	franchise TEXT,
	wikidata_qid TEXT,
	year INTEGER,
	last_organized TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_hubs_display_name_ci ON hubs(display_name_ci);

CREATE TABLE IF NOT EXISTS works (
	id TEXT PRIMARY KEY,
	hub_id TEXT REFERENCES hubs(id) ON DELETE CASCADE,
	needs_review INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_works_hub_id ON works(hub_id);

CREATE TABLE IF NOT EXISTS editions (
	id TEXT PRIMARY KEY,
	work_id TEXT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
	format TEXT NOT NULL,
	edition_label TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_editions_work_id ON editions(work_id);

CREATE TABLE IF NOT EXISTS media_assets (
	id TEXT PRIMARY KEY,
	edition_id TEXT NOT NULL REFERENCES editions(id) ON DELETE CASCADE,
	content_hash TEXT NOT NULL,
	media_type TEXT NOT NULL,
	current_path TEXT NOT NULL,
	file_size_bytes INTEGER NOT NULL,
	is_detached INTEGER NOT NULL DEFAULT 0,
	missing_scans INTEGER NOT NULL DEFAULT 0,
	retired_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_media_assets_content_hash ON media_assets(content_hash);
CREATE INDEX IF NOT EXISTS idx_media_assets_edition_id ON media_assets(edition_id);

CREATE TABLE IF NOT EXISTS persons (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	wikidata_qid TEXT,
	headshot_url TEXT,
	biography TEXT,
	created_at TEXT NOT NULL,
	enriched_at TEXT
);

CREATE TABLE IF NOT EXISTS metadata_claims (
	id TEXT PRIMARY KEY,
	entity_kind TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	field_key TEXT NOT NULL,
	value TEXT NOT NULL,
	provider_name TEXT NOT NULL,
	observed_at TEXT NOT NULL,
	is_user_locked INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_claims_entity_field ON metadata_claims(entity_id, field_key);
CREATE INDEX IF NOT EXISTS idx_claims_provider ON metadata_claims(provider_name);

CREATE TABLE IF NOT EXISTS canonical_values (
	entity_kind TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	field_key TEXT NOT NULL,
	value TEXT NOT NULL,
	last_scored_at TEXT NOT NULL,
	is_conflicted INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (entity_id, field_key)
);

CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	is_seed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS provider_registry (
	name TEXT PRIMARY KEY,
	version TEXT NOT NULL DEFAULT '',
	base_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS provider_config (
	name TEXT PRIMARY KEY REFERENCES provider_registry(name) ON DELETE CASCADE,
	enabled INTEGER NOT NULL DEFAULT 1,
	default_weight REAL NOT NULL DEFAULT 1.0,
	domain TEXT NOT NULL DEFAULT 'universal',
	field_weights TEXT NOT NULL DEFAULT '{}',
	capability_tags TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS transaction_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_kind TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_txlog_created_at ON transaction_log(created_at);
`

// Bootstrap creates all tables if they don't already exist.
func Bootstrap(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}

// PruneTransactionLog deletes the oldest rows once the table exceeds maxRows,
// per spec.md §6 ("pruned when it exceeds max_transaction_log_entries").
func PruneTransactionLog(conn *sql.DB, maxRows int) error {
	if maxRows <= 0 {
		return nil
	}
	_, err := conn.Exec(`
		DELETE FROM transaction_log
		WHERE id NOT IN (
			SELECT id FROM transaction_log ORDER BY id DESC LIMIT ?
		)`, maxRows)
	if err != nil {
		return fmt.Errorf("prune transaction log: %w", err)
	}
	return nil
}
