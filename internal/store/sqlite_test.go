package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rendis/recipelint/internal/metadata"
	"github.com/rendis/recipelint/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "schemas.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func slackSchema() *metadata.AdapterSchema {
	return &metadata.AdapterSchema{
		Provider: "slack",
		Title:    "Slack",
		Operations: map[string]*metadata.OperationSchema{
			"post_message": {
				Kind: "action",
				Input: map[string]any{
					"type":     "object",
					"required": []any{"channel"},
				},
			},
		},
	}
}

func TestSQLiteStore_PutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSchema(ctx, slackSchema(), "schemas/slack.yaml"))

	got, err := s.AdapterSchema(ctx, "slack")
	require.NoError(t, err)
	assert.Equal(t, "Slack", got.Title)
	op, ok := got.Operation("post_message")
	require.True(t, ok)
	assert.Equal(t, "post_message", op.Name)
	assert.Equal(t, "object", op.Input["type"])
	assert.Equal(t, []any{"channel"}, op.Input["required"])
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AdapterSchema(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, metadata.IsNotFound(err))

	err = s.DeleteSchema(context.Background(), "nope")
	assert.True(t, metadata.IsNotFound(err))
}

func TestSQLiteStore_PutReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSchema(ctx, slackSchema(), ""))
	updated := slackSchema()
	updated.Title = "Slack v2"
	updated.Operations["list_channels"] = &metadata.OperationSchema{}
	require.NoError(t, s.PutSchema(ctx, updated, "cli"))

	infos, err := s.ListSchemas(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Slack v2", infos[0].Title)
	assert.Equal(t, 2, infos[0].Operations)
	assert.Equal(t, "cli", infos[0].Source)
	assert.False(t, infos[0].UpdatedAt.IsZero())
}

func TestSQLiteStore_PutRejectsInvalidSchema(t *testing.T) {
	s := newTestStore(t)
	err := s.PutSchema(context.Background(), &metadata.AdapterSchema{}, "")
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeDecode))
}

func TestSQLiteStore_ImportAllAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := metadata.NewMapProvider(slackSchema(), &metadata.AdapterSchema{Provider: "http"})
	n, err := s.ImportAll(ctx, p, "dir")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	infos, err := s.ListSchemas(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "http", infos[0].Provider)
	assert.Equal(t, "slack", infos[1].Provider)

	require.NoError(t, s.DeleteSchema(ctx, "http"))
	infos, err = s.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	embedded, err := embeddedMigrations()
	require.NoError(t, err)
	var version, rows int
	require.NoError(t, s.db.QueryRow(`SELECT MAX(version), COUNT(*) FROM store_migrations`).Scan(&version, &rows))
	assert.Equal(t, len(embedded), version)
	assert.Equal(t, len(embedded), rows)
}

func TestEmbeddedMigrations(t *testing.T) {
	ms, err := embeddedMigrations()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ms), 2)
	assert.Equal(t, 1, ms[0].version)
	assert.Equal(t, "adapter_schemas", ms[0].name)
	assert.Equal(t, "document_format", ms[1].name)
}

func TestSQLiteStore_RefusesNewerDatabase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO store_migrations (version, name, applied_at) VALUES (99, 'future', 0)`)
	require.NoError(t, err)

	err = s.Migrate(ctx)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeStore))
	assert.Contains(t, err.Error(), "at migration 99")
}

func TestSQLiteStore_DocumentFormat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutSchema(ctx, slackSchema(), ""))

	var format int
	require.NoError(t, s.db.QueryRow(`SELECT format FROM adapter_schemas WHERE provider = 'slack'`).Scan(&format))
	assert.Equal(t, documentFormat, format)

	_, err := s.db.ExecContext(ctx, `UPDATE adapter_schemas SET format = ? WHERE provider = 'slack'`, documentFormat+1)
	require.NoError(t, err)
	_, err = s.AdapterSchema(ctx, "slack")
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeStore))
	assert.False(t, metadata.IsNotFound(err))
}

func TestSQLiteStore_ImportAllRejectsInvalidSchema(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	broken := &metadata.AdapterSchema{Provider: "http", Operations: map[string]*metadata.OperationSchema{"get": nil}}
	_, err := s.ImportAll(ctx, metadata.NewMapProvider(slackSchema(), broken), "dir")
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeDecode))

	infos, err := s.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos, "a failed import stores nothing")
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.PutSchema(ctx, slackSchema(), ""))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))
	_, err = s.AdapterSchema(ctx, "slack")
	assert.NoError(t, err)
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.True(t, schema.HasCode(err, schema.ErrCodeConfig))
}

func TestStatements(t *testing.T) {
	stmts := statements("-- header\nCREATE TABLE a (\n  x INT -- trailing; note\n);\n\n-- only a comment;\nCREATE INDEX i ON a(x);")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE INDEX i ON a(x)", stmts[1])
	assert.NotContains(t, stmts[0], "trailing")
}
