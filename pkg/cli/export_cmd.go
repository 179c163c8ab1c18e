package cli

import (
	"github.com/spf13/cobra"

	"github.com/tokern/dbcat/internal/service/export"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		sel  selection
		dest string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export catalog tables as JSON lines",
		Long: `Export catalog tables as JSON lines.

Destinations: "-" for stdout, a local path, s3://bucket/key, gs://bucket/key,
az://container/key, abfss://container@account.dfs.core.windows.net/key or
https://account.blob.core.windows.net/container/key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters, err := sel.patterns.Compile()
			if err != nil {
				return err
			}
			store, repos, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			svc := export.NewService(repos, a.cfg.Export, a.stdout, a.logger)
			n, err := svc.Write(cmd.Context(), export.Request{Sources: sel.sources, Filters: filters}, dest)
			if err != nil {
				return err
			}
			if dest != "-" {
				a.logger.Info("exported tables", "count", n, "destination", dest)
			}
			return nil
		},
	}
	sel.bind(cmd.Flags())
	cmd.Flags().StringVar(&dest, "dest", "-", "Export destination")
	return cmd
}
