package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/service/catalog"
)

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a source",
	}
	cmd.AddCommand(
		newAddNetworkCmd(a, domain.SourcePostgres, (*catalog.Service).AddPostgreSQLSource),
		newAddNetworkCmd(a, domain.SourceMySQL, (*catalog.Service).AddMySQLSource),
		newAddNetworkCmd(a, domain.SourceRedshift, (*catalog.Service).AddRedshiftSource),
		newAddSnowflakeCmd(a),
		newAddBigQueryCmd(a),
		newAddAWSCmd(a, domain.SourceAthena, (*catalog.Service).AddAthenaSource),
		newAddAWSCmd(a, domain.SourceGlue, (*catalog.Service).AddGlueSource),
		newAddFileCmd(a, domain.SourceSQLite, "Register a SQLite database file", (*catalog.Service).AddSQLiteSource),
		newAddFileCmd(a, domain.SourceDuckDB, "Register a DuckDB database file", (*catalog.Service).AddDuckDBSource),
		newAddFileCmd(a, domain.SourceFile, "Register a JSON file of schemata, tables and columns", (*catalog.Service).AddFileSource),
	)
	return cmd
}

// register opens the catalog, runs add and prints the new source.
func (a *app) register(ctx context.Context, add func(context.Context, *catalog.Service) (*domain.Source, error)) error {
	store, repos, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	src, err := add(ctx, catalog.NewService(repos))
	if err != nil {
		return err
	}
	a.logger.Info("source registered", "source", src.Name, "type", src.SourceType)
	list := newSourceList([]domain.Source{*src})
	return a.print(list, list)
}

// promptPassword reads a secret from the terminal. It returns "" without
// prompting when stdin is not a terminal.
func (a *app) promptPassword(label string) (string, error) {
	if a.stdin == nil {
		return "", nil
	}
	fd := int(a.stdin.Fd()) //nolint:gosec // fd fits in int
	if !term.IsTerminal(fd) {
		return "", nil
	}
	_, _ = fmt.Fprintf(a.stderr, "%s: ", label)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(a.stderr)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return string(b), nil
}

func (a *app) passwordOrPrompt(value *string, label string) error {
	if *value != "" {
		return nil
	}
	pw, err := a.promptPassword(label)
	if err != nil {
		return err
	}
	*value = pw
	return nil
}

func newAddNetworkCmd(a *app, t domain.SourceType, add func(*catalog.Service, context.Context, catalog.NetworkSource) (*domain.Source, error)) *cobra.Command {
	var p catalog.NetworkSource
	cmd := &cobra.Command{
		Use:   string(t),
		Short: fmt.Sprintf("Register a %s database", t),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.passwordOrPrompt(&p.Password, "Password"); err != nil {
				return err
			}
			return a.register(cmd.Context(), func(ctx context.Context, svc *catalog.Service) (*domain.Source, error) {
				return add(svc, ctx, p)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Name, "name", "", "Unique source name")
	f.StringVar(&p.URI, "uri", "", "Host name or address")
	f.IntVar(&p.Port, "port", 0, fmt.Sprintf("Port (default %d)", domain.DefaultPort(t)))
	f.StringVar(&p.Username, "username", "", "User name")
	f.StringVar(&p.Password, "password", "", "Password (prompted when omitted on a terminal)")
	f.StringVar(&p.Database, "database", "", "Database name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAddSnowflakeCmd(a *app) *cobra.Command {
	var p catalog.SnowflakeSource
	cmd := &cobra.Command{
		Use:   string(domain.SourceSnowflake),
		Short: "Register a Snowflake account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.passwordOrPrompt(&p.Password, "Password"); err != nil {
				return err
			}
			return a.register(cmd.Context(), func(ctx context.Context, svc *catalog.Service) (*domain.Source, error) {
				return svc.AddSnowflakeSource(ctx, p)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Name, "name", "", "Unique source name")
	f.StringVar(&p.Account, "account", "", "Account identifier")
	f.StringVar(&p.Username, "username", "", "User name")
	f.StringVar(&p.Password, "password", "", "Password (prompted when omitted on a terminal)")
	f.StringVar(&p.Database, "database", "", "Database name")
	f.StringVar(&p.Warehouse, "warehouse", "", "Warehouse")
	f.StringVar(&p.Role, "role", "", "Role")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAddBigQueryCmd(a *app) *cobra.Command {
	var p catalog.BigQuerySource
	cmd := &cobra.Command{
		Use:   string(domain.SourceBigQuery),
		Short: "Register a BigQuery project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.register(cmd.Context(), func(ctx context.Context, svc *catalog.Service) (*domain.Source, error) {
				return svc.AddBigQuerySource(ctx, p)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Name, "name", "", "Unique source name")
	f.StringVar(&p.ProjectID, "project-id", "", "GCP project id")
	f.StringVar(&p.KeyPath, "key-path", "", "Service account key file")
	f.IntVar(&p.PageSize, "page-size", 0, "Listing page size")
	f.StringVar(&p.FilterKey, "filter-key", "", "Dataset label filter")
	f.StringVar(&p.IncludedTablesRegex, "included-tables-regex", "", "Only catalog tables matching this regex")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAddAWSCmd(a *app, t domain.SourceType, add func(*catalog.Service, context.Context, catalog.AWSSource) (*domain.Source, error)) *cobra.Command {
	var p catalog.AWSSource
	cmd := &cobra.Command{
		Use:   string(t),
		Short: fmt.Sprintf("Register an AWS %s catalog", t),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.passwordOrPrompt(&p.AWSSecretAccessKey, "AWS secret access key"); err != nil {
				return err
			}
			return a.register(cmd.Context(), func(ctx context.Context, svc *catalog.Service) (*domain.Source, error) {
				return add(svc, ctx, p)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Name, "name", "", "Unique source name")
	f.StringVar(&p.RegionName, "region-name", "", "AWS region")
	f.StringVar(&p.AWSAccessKeyID, "aws-access-key-id", "", "AWS access key id")
	f.StringVar(&p.AWSSecretAccessKey, "aws-secret-access-key", "", "AWS secret access key (prompted when omitted on a terminal)")
	if t == domain.SourceAthena {
		f.StringVar(&p.S3StagingDir, "s3-staging-dir", "", "S3 location for query results")
	}
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAddFileCmd(a *app, t domain.SourceType, short string, add func(*catalog.Service, context.Context, string, string) (*domain.Source, error)) *cobra.Command {
	var name, path string
	cmd := &cobra.Command{
		Use:   string(t),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.register(cmd.Context(), func(ctx context.Context, svc *catalog.Service) (*domain.Source, error) {
				return add(svc, ctx, name, path)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Unique source name")
	cmd.Flags().StringVar(&path, "path", "", "Path to the file")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
