package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

// Migration is one schema change, read from a pair of files named
// YYYYMMDD_HHMMSS_description.up.sql and .down.sql.
type Migration struct {
	Version string // YYYYMMDD_HHMMSS
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationStatus reports whether a known migration has been applied.
type MigrationStatus struct {
	Migration
	Applied   bool
	AppliedAt time.Time
}

// Migrate applies every pending migration found in fsys, oldest first,
// each in its own transaction. It returns how many were applied.
func (db *DB) Migrate(ctx context.Context, fsys fs.FS) (int, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return 0, err
	}

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return 0, err
	}
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := db.exec(ctx, m.UpSQL,
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			m.Version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return n, fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
		n++
	}
	return n, nil
}

// Rollback reverts the most recently applied migration. It is a no-op on
// an empty schema.
func (db *DB) Rollback(ctx context.Context, fsys fs.FS) error {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	var latest string
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), '') FROM schema_migrations").Scan(&latest)
	if err != nil {
		return fmt.Errorf("finding latest migration: %w", err)
	}
	if latest == "" {
		return nil
	}

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.Version != latest {
			continue
		}
		if m.DownSQL == "" {
			return fmt.Errorf("migration %s has no down SQL", latest)
		}
		if err := db.exec(ctx, m.DownSQL, "DELETE FROM schema_migrations WHERE version = ?", m.Version); err != nil {
			return fmt.Errorf("rolling back migration %s: %w", m.Version, err)
		}
		return nil
	}
	return fmt.Errorf("migration %s not found", latest)
}

// Status lists every migration in fsys with its applied state.
func (db *DB) Status(ctx context.Context, fsys fs.FS) ([]MigrationStatus, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return nil, err
	}
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		at, ok := applied[m.Version]
		out = append(out, MigrationStatus{Migration: m, Applied: ok, AppliedAt: at})
	}
	return out, nil
}

// LoadMigrations reads and orders the migrations at the root of fsys.
// Files that do not follow the naming scheme are ignored.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, up, ok := parseMigrationFilename(e.Name())
		if !ok {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", e.Name(), err)
		}

		m, exists := byVersion[version]
		if !exists {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if up {
			m.UpSQL = string(data)
		} else {
			m.DownSQL = string(data)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" {
			return nil, fmt.Errorf("migration %s has no up SQL", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func parseMigrationFilename(file string) (version, name string, up, ok bool) {
	base, found := strings.CutSuffix(file, ".sql")
	if !found {
		return "", "", false, false
	}
	switch {
	case strings.HasSuffix(base, ".up"):
		up = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		base = strings.TrimSuffix(base, ".down")
	default:
		return "", "", false, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 3 || len(parts[0]) != 8 || len(parts[1]) != 6 {
		return "", "", false, false
	}
	return parts[0] + "_" + parts[1], parts[2], up, true
}

func (db *DB) ensureMigrationsTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]time.Time, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		t, _ := time.Parse(time.RFC3339, at) //nolint:errcheck // written by Migrate
		applied[version] = t
	}
	return applied, rows.Err()
}

// exec runs a schema statement and its bookkeeping statement in one transaction.
func (db *DB) exec(ctx context.Context, schemaSQL, recordSQL string, args ...any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, recordSQL, args...); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}
