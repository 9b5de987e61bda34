package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Migrator applies the .sql files under the migrations directory in
// version order. Files follow the golang-migrate naming convention:
// {version}_{name}.up.sql / {version}_{name}.down.sql.
type Migrator struct {
	db  *sql.DB
	dir string
}

func NewMigrator(db *sql.DB, dir string) *Migrator {
	return &Migrator{db: db, dir: dir}
}

type migrationFile struct {
	version  int64
	filename string
}

// Up applies every pending up-migration, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return fmt.Errorf("ensure version table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("load applied versions: %w", err)
	}

	files, err := m.scanDir(".up.sql")
	if err != nil {
		return fmt.Errorf("scan migrations dir: %w", err)
	}

	for _, mf := range files {
		if applied[mf.version] {
			continue
		}

		log.Printf("INFO: migrating up: %s", mf.filename)
		err := m.runFileInTx(ctx, mf.filename, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO public.schema_migrations (version, filename) VALUES ($1, $2)`,
				mf.version, mf.filename)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", mf.filename, err)
		}
	}

	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return fmt.Errorf("ensure version table: %w", err)
	}

	var version int64
	var filename string
	err := m.db.QueryRowContext(ctx,
		`SELECT version, filename FROM public.schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &filename)
	if err == sql.ErrNoRows {
		log.Println("INFO: no migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load current version: %w", err)
	}

	downFile := strings.TrimSuffix(filename, ".up.sql") + ".down.sql"
	err = m.runFileInTx(ctx, downFile, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM public.schema_migrations WHERE version = $1`, version)
		return err
	})
	if err != nil {
		return fmt.Errorf("rollback %s: %w", downFile, err)
	}

	log.Printf("INFO: rolled back: %s", downFile)
	return nil
}

// Status reports the current schema version and any pending migrations.
func (m *Migrator) Status(ctx context.Context) (current int64, pending []string, err error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return 0, nil, err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, nil, err
	}
	for v := range applied {
		if v > current {
			current = v
		}
	}

	files, err := m.scanDir(".up.sql")
	if err != nil {
		return 0, nil, err
	}
	for _, mf := range files {
		if !applied[mf.version] {
			pending = append(pending, mf.filename)
		}
	}

	return current, pending, nil
}

// runFileInTx executes the SQL file and the record callback atomically.
func (m *Migrator) runFileInTx(ctx context.Context, filename string, record func(*sql.Tx) error) error {
	content, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	return tx.Commit()
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	// Lives in public: the migrations themselves create and drop the
	// event_log and projections schemas.
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS public.schema_migrations (
			version    BIGINT PRIMARY KEY,
			filename   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int64]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM public.schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// scanDir lists migration files with the given suffix sorted by version.
// Files whose name does not start with a numeric version are rejected
// rather than silently skipped.
func (m *Migrator) scanDir(suffix string) ([]migrationFile, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var files []migrationFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}

		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("malformed migration filename: %s", name)
		}
		version, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed migration version in %s: %w", name, err)
		}

		files = append(files, migrationFile{version: version, filename: name})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}
