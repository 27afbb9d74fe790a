package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rendis/recipelint/internal/logging"
	"github.com/rendis/recipelint/internal/metadata"
	"github.com/rendis/recipelint/internal/store"
	"github.com/rendis/recipelint/internal/validation"
)

// stdinName is the argument that reads a recipe from standard input.
const stdinName = "-"

type validateFlags struct {
	format    string
	schemaDir string
	schemaDB  string
	rulesFile string
	strict    bool
}

func newValidateCommand(a *app) *cobra.Command {
	var flags validateFlags
	cmd := &cobra.Command{
		Use:   "validate <recipe.json>...",
		Short: "Validate recipe files",
		Long: `Validate one or more recipe JSON files. Use - to read a recipe from stdin.

Connector input schemas are taken from --schemas (a directory of YAML or
JSON adapter schemas) and from the schema database filled by
"recipelint schemas import". Without either, inputs are checked
structurally only.

Exit status is 0 when every file is valid, 1 when any file has errors
(or warnings with --strict), and 2 when a file cannot be read.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.apply(cmd, a.cfg)
			if err != nil {
				return err
			}
			return a.runValidate(cmd.Context(), cfg, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.format, "format", "f", "", "output format: text or json")
	f.StringVar(&flags.schemaDir, "schemas", "", "directory of adapter schema files")
	f.StringVar(&flags.schemaDB, "schema-db", "", "adapter schema database")
	f.StringVar(&flags.rulesFile, "rules", "", "YAML file of extra lint rules")
	f.BoolVar(&flags.strict, "strict", false, "treat warnings as failures")
	return cmd
}

// apply layers the command flags over cfg.
func (f validateFlags) apply(cmd *cobra.Command, cfg Config) (Config, error) {
	set := cmd.Flags()
	if set.Changed("format") {
		cfg.Format = f.format
	}
	if set.Changed("schemas") {
		cfg.SchemaDir = f.schemaDir
	}
	if set.Changed("schema-db") {
		cfg.SchemaDB = f.schemaDB
	}
	if set.Changed("strict") {
		cfg.Strict = f.strict
	}
	if set.Changed("rules") {
		extra, err := loadRulesFile(f.rulesFile)
		if err != nil {
			return cfg, failure("loading rules", err)
		}
		cfg.Rules = append(cfg.Rules, extra...)
	}
	if err := cfg.validate(); err != nil {
		return cfg, failure("invalid configuration", err)
	}
	return cfg, nil
}

func (a *app) runValidate(ctx context.Context, cfg Config, files []string) error {
	provider, closeStore, err := a.openMetadata(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	v, err := validation.NewRecipeValidator(validation.Options{
		Metadata: provider,
		Rules:    cfg.Rules,
		Logger:   a.logger,
	})
	if err != nil {
		return failure("compiling rules", err)
	}

	reports := make([]fileReport, 0, len(files))
	for _, path := range files {
		reports = append(reports, a.validateFile(ctx, v, path))
	}
	if err := renderReports(a.stdout, cfg.Format, reports, cfg.Strict); err != nil {
		return failure("writing results", err)
	}

	code := exitValid
	for _, r := range reports {
		switch {
		case r.failed():
			code = exitFailure
		case !r.passed(cfg.Strict) && code == exitValid:
			code = exitInvalid
		}
	}
	if code != exitValid {
		return &exitError{Code: code}
	}
	return nil
}

func (a *app) validateFile(ctx context.Context, v *validation.RecipeValidator, path string) fileReport {
	rep := fileReport{File: path}
	ctx = logging.WithRecipe(ctx, path)

	data, err := a.readInput(path)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.SHA256, _ = sha256Hex(bytes.NewReader(data))

	doc, err := validation.DecodeRecipe(data)
	if err != nil {
		a.logger.DebugContext(ctx, "recipe not decodable", "error", err)
		rep.Error = err.Error()
		return rep
	}
	rep.Result = v.Validate(ctx, doc)
	return rep
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == stdinName {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(path)
}

// openMetadata assembles the metadata provider from the schema directory
// and the schema database. A missing database is not an error; the
// default location simply has not been imported into yet. The returned
// func closes the database, if one was opened.
func (a *app) openMetadata(ctx context.Context, cfg Config) (metadata.Provider, func(), error) {
	var (
		chain metadata.Chain
		db    *store.SQLiteStore
	)
	closeStore := func() {
		if db != nil {
			db.Close()
		}
	}

	if cfg.SchemaDir != "" {
		dir, err := metadata.LoadDir(cfg.SchemaDir)
		if err != nil {
			return nil, closeStore, failure("loading adapter schemas", err)
		}
		a.logger.DebugContext(ctx, "adapter schemas loaded", "dir", cfg.SchemaDir, "providers", len(dir.Providers()))
		chain = append(chain, dir)
	}

	if cfg.SchemaDB != "" {
		s, err := openExistingStore(ctx, cfg.SchemaDB)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			a.logger.DebugContext(ctx, "no adapter schema database", "path", cfg.SchemaDB)
		case err != nil:
			return nil, closeStore, failure("opening adapter schema database", err)
		default:
			db = s
			chain = append(chain, db)
		}
	}

	if len(chain) == 0 {
		return nil, closeStore, nil
	}
	return chain, closeStore, nil
}

// openExistingStore opens a schema database without creating it.
func openExistingStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return openStore(ctx, path)
}

// openStore opens (creating if needed) and migrates a schema database.
func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
