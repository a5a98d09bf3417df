package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/jot/internal/errors"
)

// schemaV1 is the first released layout. Kept so tests can build legacy stores.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS notes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL
);
`

// schemaLatest creates a fresh store at CurrentSchemaVersion.
const schemaLatest = `
CREATE TABLE IF NOT EXISTS notes (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	title               TEXT NOT NULL DEFAULT '',
	content             TEXT NOT NULL DEFAULT '',
	created_at          INTEGER NOT NULL,
	modified_at         INTEGER NOT NULL,
	folder              TEXT,
	is_task             INTEGER NOT NULL DEFAULT 0,
	is_completed        INTEGER NOT NULL DEFAULT 0,
	due_date            INTEGER,
	is_deleted          INTEGER NOT NULL DEFAULT 0,
	image_uris          TEXT,
	text_formatting     TEXT,
	reminder_date_time  INTEGER,
	reminder_recurrence TEXT,
	audio_file_path     TEXT
);
`

type column struct {
	name string
	def  string
}

// migration adds columns and indexes to reach version.
// Steps are additive: existing rows keep their values and new columns take defaults.
type migration struct {
	version int
	columns []column
	indexes []string
}

var migrations = []migration{
	{
		version: 2,
		columns: []column{
			{"folder", "TEXT"},
			{"is_task", "INTEGER NOT NULL DEFAULT 0"},
			{"is_completed", "INTEGER NOT NULL DEFAULT 0"},
		},
		indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder)",
		},
	},
	{
		version: 3,
		columns: []column{
			{"due_date", "INTEGER"},
		},
	},
	{
		version: 4,
		columns: []column{
			{"is_deleted", "INTEGER NOT NULL DEFAULT 0"},
		},
		indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_notes_status_modified ON notes(is_deleted, modified_at DESC)",
		},
	},
	{
		version: 5,
		columns: []column{
			{"image_uris", "TEXT"},
			{"text_formatting", "TEXT"},
			{"reminder_date_time", "INTEGER"},
			{"reminder_recurrence", "TEXT"},
		},
		indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_notes_reminder ON notes(reminder_date_time) WHERE reminder_date_time IS NOT NULL",
		},
	},
	{
		version: 6,
		columns: []column{
			{"audio_file_path", "TEXT"},
		},
	},
}

// createSchema builds a new store directly at CurrentSchemaVersion.
func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaLatest); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	for _, m := range migrations {
		for _, idx := range m.indexes {
			if _, err := tx.ExecContext(ctx, idx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}
	}
	if err := SetUserVersion(tx, CurrentSchemaVersion); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

// Migrate upgrades the store one version at a time until it reaches target.
// Each step runs in its own transaction, so a failure leaves the store at the
// last completed version. Calling Migrate on an up-to-date store is a no-op.
func Migrate(ctx context.Context, db *sql.DB, target int) error {
	if target > CurrentSchemaVersion {
		return errors.NewInvalidRequest(fmt.Sprintf("unknown schema version %d", target))
	}

	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= version || m.version > target {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration to v%d failed: %w", m.version, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing, err := columnNames(ctx, tx, "notes")
	if err != nil {
		return err
	}

	for _, col := range m.columns {
		// Tolerate partially applied steps from interrupted upgrades
		if existing[col.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE notes ADD COLUMN %s %s", col.name, col.def)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, idx := range m.indexes {
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	if err := SetUserVersion(tx, m.version); err != nil {
		return err
	}

	return tx.Commit()
}

// columnNames returns the set of column names on table.
func columnNames(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
