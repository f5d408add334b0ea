package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/teamtalk/talktome/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file created under the base directory.
const FileName = "talktome.db"

// Init initializes the SQLite database at baseDir/talktome.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.talktome.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to every pooled connection;
	// foreign_keys is per-connection in SQLite and drives the cascades.
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := verifyForeignKeys(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: folders, meetings, transcript edit log
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS folders (
		  id         TEXT PRIMARY KEY,
		  name       TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_folders_created
		ON folders(created_at DESC);

		CREATE TABLE IF NOT EXISTS meetings (
		  id           TEXT PRIMARY KEY,
		  title        TEXT NOT NULL,
		  scheduled_at INTEGER,
		  folder_id    TEXT REFERENCES folders(id) ON DELETE CASCADE,
		  transcript   TEXT,
		  summary      TEXT,
		  created_at   INTEGER NOT NULL,
		  updated_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_meetings_created
		ON meetings(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_meetings_folder_created
		ON meetings(folder_id, created_at DESC)
		WHERE folder_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS transcript_edits (
		  id         TEXT PRIMARY KEY,
		  meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		  from_text  TEXT NOT NULL,
		  to_text    TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transcript_edits_meeting_created
		ON transcript_edits(meeting_id, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// verifyForeignKeys checks that foreign key enforcement is on.
func verifyForeignKeys(db *sql.DB) error {
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys;").Scan(&enabled); err != nil {
		return fmt.Errorf("failed to verify foreign keys: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("expected foreign_keys=1, got %d", enabled)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
