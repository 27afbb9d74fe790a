package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/recipelint/pkg/schema"
)

// Migration scripts are named NNN_name.sql and applied in version order.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

type migration struct {
	version int
	name    string
	script  string
}

// embeddedMigrations parses the scripts compiled into the binary.
func embeddedMigrations() ([]migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, e := range entries {
		base := strings.TrimSuffix(e.Name(), ".sql")
		num, name, ok := strings.Cut(base, "_")
		v, err := strconv.Atoi(num)
		if !ok || err != nil || v <= 0 {
			return nil, fmt.Errorf("migration file %q is not named NNN_name.sql", e.Name())
		}
		data, err := migrationFiles.ReadFile(path.Join("migrations", e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, migration{version: v, name: name, script: string(data)})
	}
	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	for i, m := range out {
		if m.version != i+1 {
			return nil, fmt.Errorf("migration versions must be contiguous from 1, found %d at position %d", m.version, i+1)
		}
	}
	return out, nil
}

// migrate brings the cache schema up to the newest embedded migration. A
// database already past that version was written by a newer recipelint and
// is refused rather than read with the wrong column layout.
func migrate(ctx context.Context, db *sql.DB) error {
	pending, err := embeddedMigrations()
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "reading embedded migrations").WithCause(err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS store_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return schema.NewError(schema.ErrCodeStore, "creating migration table").WithCause(err)
	}

	var applied int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM store_migrations`).Scan(&applied); err != nil {
		return schema.NewError(schema.ErrCodeStore, "reading migration state").WithCause(err)
	}
	if latest := len(pending); applied > latest {
		return schema.NewErrorf(schema.ErrCodeStore,
			"schema database is at migration %d but this recipelint knows only %d; upgrade recipelint or use another --schema-db",
			applied, latest)
	}

	for _, m := range pending[applied:] {
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "migration %d: begin", m.version).WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements(m.script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return schema.NewErrorf(schema.ErrCodeStore, "migration %d (%s)", m.version, m.name).WithCause(err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO store_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, time.Now().UnixMilli()); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "migration %d: record", m.version).WithCause(err)
	}
	if err := tx.Commit(); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "migration %d: commit", m.version).WithCause(err)
	}
	return nil
}

// statements drops "--" comments and splits a script on semicolons. The
// migration scripts hold no string literals containing either.
func statements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, s := range strings.Split(b.String(), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
