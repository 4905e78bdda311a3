package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite serializes through a single connection.
	conn.SetMaxOpenConns(1)

	d := &DB{db: conn}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// OpenInMemory opens an in-memory database, for tests.
func OpenInMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	d := &DB{db: conn}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id               TEXT PRIMARY KEY,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	source_url       TEXT NOT NULL,
	source_kind      TEXT NOT NULL DEFAULT 'single',
	parent_id        TEXT REFERENCES downloads(id) ON DELETE CASCADE,
	title            TEXT,
	uploader         TEXT,
	duration_seconds INTEGER,
	status           TEXT NOT NULL,
	phase            TEXT,
	progress_percent REAL NOT NULL DEFAULT -1,
	bytes_downloaded INTEGER NOT NULL DEFAULT -1,
	bytes_total      INTEGER NOT NULL DEFAULT -1,
	speed_bps        INTEGER NOT NULL DEFAULT -1,
	eta_seconds      INTEGER NOT NULL DEFAULT -1,
	preset_id        TEXT NOT NULL DEFAULT 'recommended_best',
	output_dir       TEXT NOT NULL DEFAULT '',
	final_path       TEXT,
	error_code       TEXT,
	error_message    TEXT
);

CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
CREATE INDEX IF NOT EXISTS idx_downloads_parent ON downloads(parent_id);

CREATE TABLE IF NOT EXISTS download_logs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	download_id TEXT NOT NULL REFERENCES downloads(id) ON DELETE CASCADE,
	ts          TEXT NOT NULL,
	stream      TEXT NOT NULL,
	line        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_download_logs_download ON download_logs(download_id, id);
`

func (d *DB) migrate() error {
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
