package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/service/catalog"
)

// withCatalog opens the catalog for the duration of fn.
func (a *app) withCatalog(ctx context.Context, fn func(*catalog.Service) error) error {
	store, repos, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck
	return fn(catalog.NewService(repos))
}

func newSourcesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List and manage registered sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				sources, err := svc.ListSources(cmd.Context())
				if err != nil {
					return err
				}
				list := newSourceList(sources)
				return a.print(list, list)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <source>",
		Short: "Remove a source and everything cataloged under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				if err := svc.DeleteSource(cmd.Context(), args[0]); err != nil {
					return err
				}
				a.logger.Info("source removed", "source", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-default-schema <source> <schema>",
		Short: "Set the default schema of a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				schema, err := svc.SetDefaultSchema(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				list := newSchemaList([]domain.Schema{*schema})
				return a.print(list, list)
			})
		},
	})
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var q domain.SearchQuery
	cmd := &cobra.Command{
		Use:       "search <sources|schemata|tables|columns>",
		Short:     "Search the catalog with SQL LIKE patterns",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"sources", "schemata", "tables", "columns"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withCatalog(ctx, func(svc *catalog.Service) error {
				switch args[0] {
				case "sources":
					sources, err := svc.SearchSources(ctx, q.Source)
					if err != nil {
						return err
					}
					list := newSourceList(sources)
					return a.print(list, list)
				case "schemata":
					schemas, err := svc.SearchSchema(ctx, q)
					if err != nil {
						return err
					}
					list := newSchemaList(schemas)
					return a.print(list, list)
				case "tables":
					tables, err := svc.SearchTables(ctx, q)
					if err != nil {
						return err
					}
					list := newTableList(tables)
					return a.print(list, list)
				case "columns":
					cols, err := svc.SearchColumn(ctx, q)
					if err != nil {
						return err
					}
					list := newColumnList(cols)
					return a.print(list, list)
				}
				return domain.ErrValidation("unknown search target %q", args[0])
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Source, "source", "", "Source name pattern")
	f.StringVar(&q.Schema, "schema", "", "Schema name pattern")
	f.StringVar(&q.Table, "table", "", "Table name pattern")
	f.StringVar(&q.Column, "column", "", "Column name pattern")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Describe a single catalog object",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "table <table>",
		Short: "Show the columns of a table",
		Long: `Show the columns of a table. The table name is resolved with --source and
--schema; a name matching more than one table is an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			schema, _ := cmd.Flags().GetString("schema")
			ctx := cmd.Context()
			return a.withCatalog(ctx, func(svc *catalog.Service) error {
				table, err := svc.SearchTable(ctx, domain.SearchQuery{Source: source, Schema: schema, Table: args[0]})
				if err != nil {
					return err
				}
				cols, err := svc.GetColumnsForTable(ctx, table, nil, nil)
				if err != nil {
					return err
				}
				list := newColumnList(cols)
				return a.print(list, list)
			})
		},
	})
	for _, sub := range cmd.Commands() {
		sub.Flags().String("source", "", "Source name pattern")
		sub.Flags().String("schema", "", "Schema name pattern")
	}
	return cmd
}
