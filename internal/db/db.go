// Package db stores experiment records (signals and the trials that group
// them) in SQLite. The schema is managed by embedded golang-migrate
// migrations.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/eim/internal/config"
	"github.com/banshee-data/eim/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNotFound     = errors.New("record not found")
	ErrSignalInUse  = errors.New("signal is referenced by a trial")
	ErrInvalidExtra = errors.New("extra attributes are not JSON-compatible")
)

var logf = monitoring.Component("db")

// DB is the experiment store. Open it once at start-up, share the pointer with
// every accessor, and Close it at shutdown.
type DB struct {
	*sql.DB
	path string
}

// Open connects to the database described by cfg, applies connection pragmas
// and, unless disabled, migrates the schema to the latest version.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("database path is required")
	}

	sqlDB, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if !cfg.ReadOnly {
		if err := applyPragmas(sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	d := &DB{DB: sqlDB, path: cfg.Path}
	if cfg.GetAutoMigrate() && !cfg.ReadOnly {
		if err := d.MigrateUp(); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	logf("opened %s", cfg.Path)
	return d, nil
}

// Path returns the database file the store was opened with.
func (db *DB) Path() string { return db.path }

// dsn builds a modernc.org/sqlite URI. Per-connection pragmas go in the DSN so
// every pooled connection gets them.
func dsn(cfg config.DatabaseConfig) string {
	params := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", cfg.GetBusyTimeout()/time.Millisecond),
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=temp_store(MEMORY)",
	}
	if cfg.ReadOnly {
		params = append(params, "mode=ro")
	}
	return "file:" + cfg.Path + "?" + strings.Join(params, "&")
}

// applyPragmas sets database-wide pragmas that persist in the file.
func applyPragmas(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("failed to set journal_mode: %w", err)
	}
	return nil
}
