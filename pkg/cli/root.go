// Package cli implements the dbcat command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tokern/dbcat/internal/config"
	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/db/repository"
	"github.com/tokern/dbcat/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// app carries resolved global state from the root command to subcommands.
type app struct {
	output string
	appDir string
	stdout io.Writer
	stderr io.Writer
	stdin  *os.File

	cfg    *config.Config
	logger *slog.Logger
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	a := &app{stdout: os.Stdout, stderr: os.Stderr, stdin: os.Stdin}
	return run(context.Background(), a, os.Args[1:])
}

func run(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		a.printError(err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "dbcat",
		Short:         "Database metadata catalog",
		Long:          "Scan databases and warehouses into a searchable catalog of schemas, tables, columns and lineage.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(a.output); err != nil {
				return err
			}
			if a.appDir == "" {
				dir, err := config.AppDir()
				if err != nil {
					return err
				}
				a.appDir = dir
			}
			if err := config.LoadDotEnv(".env", filepath.Join(a.appDir, ".env")); err != nil {
				return err
			}
			cfg, err := config.Load(a.appDir, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.output, "output", "o", "table", "Output format (table, json, yaml)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.appDir, "app-dir", "", "Directory holding catalog.yml and the default catalog")
	pf.String("catalog-path", "", "SQLite catalog file")
	pf.String("catalog-host", "", "PostgreSQL catalog host")
	pf.Int("catalog-port", 0, "PostgreSQL catalog port")
	pf.String("catalog-user", "", "PostgreSQL catalog user")
	pf.String("catalog-password", "", "PostgreSQL catalog password")
	pf.String("catalog-database", "", "PostgreSQL catalog database")

	rootCmd.AddCommand(newAddCmd(a))
	rootCmd.AddCommand(newScanCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newMigrateCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newSourcesCmd(a))
	rootCmd.AddCommand(newSearchCmd(a))
	rootCmd.AddCommand(newGetCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))
	rootCmd.AddCommand(newCompletionCmd(a))

	return rootCmd
}

// storeConfig resolves the configured catalog, falling back to the
// default file in the app dir when nothing is configured.
func (a *app) storeConfig() (config.StoreConfig, error) {
	catalog := a.cfg.Catalog
	if catalog.IsZero() {
		catalog = config.DefaultCatalog(a.appDir)
	}
	return catalog.Resolve()
}

// openCatalog opens the catalog store and brings its schema up to date.
// Callers must Close the returned store.
func (a *app) openCatalog(ctx context.Context) (*db.Store, *repository.Repositories, error) {
	sc, err := a.storeConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := sc.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog %s: %w", sc, err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrate catalog: %w", err)
	}
	a.logger.Debug("catalog opened", "store", sc.String())
	return store, repository.NewRepositories(store), nil
}

func (a *app) printError(err error) {
	if a.output == "json" {
		errObj := map[string]any{"error": err.Error()}
		if kind := errorKind(err); kind != "" {
			errObj["kind"] = kind
		}
		_ = printJSON(a.stdout, errObj)
		return
	}
	var noMatches *domain.NoMatchesError
	if errors.As(err, &noMatches) {
		_, _ = color.New(color.FgYellow).Fprintf(a.stderr, "Error: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(a.stderr, "Error: %v\n", err)
}

func errorKind(err error) string {
	var (
		notFound  *domain.NotFoundError
		ambiguous *domain.AmbiguousMatchError
		invalid   *domain.ValidationError
		conflict  *domain.ConflictError
		cfgErr    *domain.ConfigurationError
		noMatches *domain.NoMatchesError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &ambiguous):
		return "ambiguous"
	case errors.As(err, &invalid):
		return "validation"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &noMatches):
		return "no_matches"
	}
	return ""
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if a.output != "table" {
				return a.print(map[string]string{"version": version, "commit": commit}, nil)
			}
			_, err := fmt.Fprintf(a.stdout, "dbcat version %s (commit: %s)\n", version, commit)
			return err
		},
	}
}

func newCompletionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		// completion needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(a.stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(a.stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(a.stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(a.stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
