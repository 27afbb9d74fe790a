package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rendis/recipelint/internal/metadata"
	"github.com/rendis/recipelint/pkg/schema"
)

// documentFormat is the layout version of the JSON written to
// adapter_schemas.document. Bump it when AdapterSchema's encoding changes
// incompatibly; rows with a newer format are refused on read.
const documentFormat = 1

// SQLiteStore implements SchemaStore on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
// Call Migrate before first use.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, schema.NewError(schema.ErrCodeConfig, "schema database path is required")
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db)
}

// PutSchema inserts or replaces the schema of one provider. source records
// where it was imported from.
func (s *SQLiteStore) PutSchema(ctx context.Context, as *metadata.AdapterSchema, source string) error {
	if err := as.Validate(); err != nil {
		return err
	}
	return upsertSchema(ctx, s.db, as, source)
}

// ImportAll stores every schema of p in one transaction. One invalid schema
// aborts the whole import.
func (s *SQLiteStore) ImportAll(ctx context.Context, p *metadata.MapProvider, source string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, schema.NewError(schema.ErrCodeStore, "begin import").WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	n := 0
	for _, as := range p.Schemas() {
		if err := as.Validate(); err != nil {
			return 0, err
		}
		if err := upsertSchema(ctx, tx, as, source); err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, schema.NewError(schema.ErrCodeStore, "commit import").WithCause(err)
	}
	return n, nil
}

// AdapterSchema implements metadata.Provider.
func (s *SQLiteStore) AdapterSchema(ctx context.Context, provider string) (*metadata.AdapterSchema, error) {
	var (
		doc    string
		format int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT document, format FROM adapter_schemas WHERE provider = ?`, provider,
	).Scan(&doc, &format)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, metadata.NotFound(provider)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "load schema for %s", provider).WithCause(err)
	}

	if format > documentFormat {
		return nil, schema.NewErrorf(schema.ErrCodeStore,
			"schema for %s uses document format %d, this recipelint reads up to %d", provider, format, documentFormat)
	}

	var as metadata.AdapterSchema
	if err := json.Unmarshal([]byte(doc), &as); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "corrupt schema for %s", provider).WithCause(err)
	}
	return &as, nil
}

func (s *SQLiteStore) ListSchemas(ctx context.Context) ([]SchemaInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, title, operations, source, updated_at FROM adapter_schemas ORDER BY provider`)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "list schemas").WithCause(err)
	}
	defer rows.Close()

	var out []SchemaInfo
	for rows.Next() {
		var (
			info          SchemaInfo
			title, source sql.NullString
			updated       int64
		)
		if err := rows.Scan(&info.Provider, &title, &info.Operations, &source, &updated); err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "scan schema row").WithCause(err)
		}
		info.Title = title.String
		info.Source = source.String
		info.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSchema(ctx context.Context, provider string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM adapter_schemas WHERE provider = ?`, provider)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "delete schema for %s", provider).WithCause(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return metadata.NotFound(provider)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertSchema(ctx context.Context, db execer, as *metadata.AdapterSchema, source string) error {
	doc, err := json.Marshal(as)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "marshal schema for %s", as.Provider).WithCause(err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO adapter_schemas (provider, title, document, format, operations, source, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(provider) DO UPDATE SET title=excluded.title, document=excluded.document, format=excluded.format,
		   operations=excluded.operations, source=excluded.source, updated_at=excluded.updated_at`,
		as.Provider, nullStr(as.Title), string(doc), documentFormat, len(as.Operations), nullStr(source), time.Now().UnixMilli(),
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "store schema for %s", as.Provider).WithCause(err)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ SchemaStore = (*SQLiteStore)(nil)
