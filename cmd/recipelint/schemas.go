package main

import (
	"context"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/recipelint/internal/metadata"
	"github.com/rendis/recipelint/internal/store"
)

func newSchemasCommand(a *app) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "Manage the adapter schema database",
		Args:  cobra.NoArgs,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "schema-db", "", "adapter schema database (default $HOME/.recipelint/schemas.db)")

	// withStore resolves the database path and hands an open store to fn.
	withStore := func(cmd *cobra.Command, fn func(context.Context, *store.SQLiteStore) error) error {
		path := a.cfg.SchemaDB
		if cmd.Flags().Changed("schema-db") {
			path = dbPath
		}
		if path == "" {
			return failure("no schema database configured", nil)
		}
		s, err := openStore(cmd.Context(), path)
		if err != nil {
			return failure("opening adapter schema database", err)
		}
		defer s.Close()
		return fn(cmd.Context(), s)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "import <dir>",
			Short: "Import every adapter schema file in a directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, s *store.SQLiteStore) error {
					return a.importSchemas(ctx, s, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored adapter schemas",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, a.listSchemas)
			},
		},
		&cobra.Command{
			Use:   "delete <provider>",
			Short: "Remove a provider's adapter schema",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, s *store.SQLiteStore) error {
					if err := s.DeleteSchema(ctx, args[0]); err != nil {
						return failure("deleting adapter schema", err)
					}
					fmt.Fprintln(a.stdout, renderOK(fmt.Sprintf("deleted %s", args[0])))
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) importSchemas(ctx context.Context, s *store.SQLiteStore, dir string) error {
	p, err := metadata.LoadDir(dir)
	if err != nil {
		return failure("loading adapter schemas", err)
	}
	source := dir
	if abs, err := filepath.Abs(dir); err == nil {
		source = abs
	}
	n, err := s.ImportAll(ctx, p, source)
	if err != nil {
		return failure("importing adapter schemas", err)
	}
	a.logger.InfoContext(ctx, "adapter schemas imported", "count", n, "source", source)
	fmt.Fprintln(a.stdout, renderOK(fmt.Sprintf("imported %s from %s", plural(n, "adapter schema"), dir)))
	return nil
}

func (a *app) listSchemas(ctx context.Context, s *store.SQLiteStore) error {
	infos, err := s.ListSchemas(ctx)
	if err != nil {
		return failure("listing adapter schemas", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(a.stdout, "No adapter schemas stored.")
		fmt.Fprintln(a.stdout)
		fmt.Fprintln(a.stdout, "Run 'recipelint schemas import <dir>' to add some.")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tTITLE\tOPERATIONS\tUPDATED\tSOURCE")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			info.Provider, info.Title, info.Operations, info.UpdatedAt.Format(time.DateTime), info.Source)
	}
	return w.Flush()
}
