package main

import (
	"github.com/spf13/cobra"

	"github.com/rendis/recipelint/internal/metadata"
	"github.com/rendis/recipelint/internal/store"
	"github.com/rendis/recipelint/internal/validation"
	"github.com/rendis/recipelint/pkg/mcp"
)

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the validator as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// The server lists stored schemas, so the database is created
			// when missing instead of being skipped.
			cfg := a.cfg
			var db *store.SQLiteStore
			if cfg.SchemaDB != "" {
				s, err := openStore(ctx, cfg.SchemaDB)
				if err != nil {
					return failure("opening adapter schema database", err)
				}
				defer s.Close()
				db, cfg.SchemaDB = s, ""
			}

			provider, closeStore, err := a.openMetadata(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			if db != nil {
				if provider == nil {
					provider = db
				} else {
					provider = metadata.Chain{provider, db}
				}
			}

			v, err := validation.NewRecipeValidator(validation.Options{
				Metadata: provider,
				Rules:    cfg.Rules,
				Logger:   a.logger,
			})
			if err != nil {
				return failure("compiling rules", err)
			}

			deps := mcp.ServerDeps{Validator: v, Logger: a.logger, Version: version}
			if db != nil {
				deps.Schemas = db
			}
			srv, err := mcp.NewRecipeServer(deps)
			if err != nil {
				return failure("starting MCP server", err)
			}

			if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
				return failure("mcp server", err)
			}
			return nil
		},
	}
}
