package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokern/dbcat/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the catalog schema",
	}

	withStore := func(fn func(*db.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			sc, err := a.storeConfig()
			if err != nil {
				return err
			}
			store, err := sc.Open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open catalog %s: %w", sc, err)
			}
			defer store.Close() //nolint:errcheck
			return fn(store)
		}
	}
	status := func(store *db.Store) error {
		v, err := db.MigrationVersion(store.DB(), store.Dialect())
		if err != nil {
			return err
		}
		return a.print(map[string]any{"dialect": string(store.Dialect()), "version": v}, nil)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withStore(func(store *db.Store) error {
				if err := db.RunMigrations(store.DB(), store.Dialect()); err != nil {
					return err
				}
				return status(store)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withStore(func(store *db.Store) error {
				if err := db.RollbackMigration(store.DB(), store.Dialect()); err != nil {
					return err
				}
				return status(store)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE:  withStore(status),
		},
	)
	return cmd
}
