package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/jot/internal/config"
	"github.com/hpungsan/jot/internal/errors"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 6

// OldestSchemaVersion is the first released schema (title/content/timestamps only).
const OldestSchemaVersion = 1

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Init initializes the SQLite database at baseDir/jot.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.jot.
func Init(baseDir string) (*sql.DB, error) {
	db, err := Open(baseDir)
	if err != nil {
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(Path(baseDir), 0600)

	return db, nil
}

// Open prepares baseDir and opens the database without touching the schema.
// Most callers want Init; Open exists for tools and tests that manage
// migrations themselves.
func Open(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Create exports subdirectory
	exportsDir := ExportsDir(baseDir)
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dsn := Path(baseDir) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the database file path under baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, "jot.db")
}

// ExportsDir returns the default directory for backup files.
func ExportsDir(baseDir string) string {
	return filepath.Join(baseDir, "exports")
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
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

// migrate brings the store to CurrentSchemaVersion.
// A store without user_version and without a notes table is new and gets the
// latest schema directly. One with a notes table but no version predates
// versioning and is treated as OldestSchemaVersion.
func migrate(ctx context.Context, db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	if version > CurrentSchemaVersion {
		return errors.NewConflict(fmt.Sprintf(
			"database schema version %d is newer than supported version %d", version, CurrentSchemaVersion))
	}

	if version == 0 {
		exists, err := tableExists(ctx, db, "notes")
		if err != nil {
			return err
		}
		if !exists {
			return createSchema(ctx, db)
		}
		if err := SetUserVersion(db, OldestSchemaVersion); err != nil {
			return err
		}
	}

	return Migrate(ctx, db, CurrentSchemaVersion)
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

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db Querier) (int, error) {
	var version int
	if err := db.QueryRowContext(context.Background(), "PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db Querier, version int) error {
	_, err := db.ExecContext(context.Background(), fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// tableExists reports whether a table with the given name exists.
func tableExists(ctx context.Context, db Querier, name string) (bool, error) {
	var found string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to inspect schema: %w", err)
	}
	return true, nil
}
