package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tokern/dbcat/internal/extract"
	"github.com/tokern/dbcat/internal/filter"
	"github.com/tokern/dbcat/internal/service/scan"
)

// selection holds the source names and patterns shared by scan, export and
// serve.
type selection struct {
	sources  []string
	patterns filter.Patterns
}

func (s *selection) bind(f *pflag.FlagSet) {
	f.StringArrayVar(&s.sources, "source-name", nil, "Source to include (repeatable, default all)")
	f.StringArrayVar(&s.patterns.IncludeSchema, "include-schema", nil, "Schema regex to include (repeatable)")
	f.StringArrayVar(&s.patterns.ExcludeSchema, "exclude-schema", nil, "Schema regex to exclude (repeatable)")
	f.StringArrayVar(&s.patterns.IncludeTable, "include-table", nil, "Table regex to include (repeatable)")
	f.StringArrayVar(&s.patterns.ExcludeTable, "exclude-table", nil, "Table regex to exclude (repeatable)")
}

type scanResults []scan.SourceResult

func (r scanResults) table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r))
	for _, res := range r {
		rows = append(rows, []string{
			res.Source,
			statusColor(res.Status).Sprint(string(res.Status)),
			strconv.Itoa(res.Counts.Schemas),
			strconv.Itoa(res.Counts.Tables),
			strconv.Itoa(res.Counts.Columns),
			res.Message,
		})
	}
	return []string{"source", "status", "schemas", "tables", "columns", "message"}, rows
}

func statusColor(s scan.Status) *color.Color {
	switch s {
	case scan.StatusSuccess:
		return color.New(color.FgGreen)
	case scan.StatusNoMatches, scan.StatusEmptySource:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// scanError summarizes unsuccessful sources. No-match outcomes count as
// failures. The returned error wraps the first hard failure, or the first
// no-match error when every problem is a no-match.
func scanError(results []scan.SourceResult) error {
	var failed int
	var first, firstNoMatch error
	for _, res := range results {
		switch res.Status {
		case scan.StatusSuccess:
			continue
		case scan.StatusNoMatches, scan.StatusEmptySource:
			if firstNoMatch == nil {
				firstNoMatch = res.Err
			}
		default:
			if first == nil {
				first = res.Err
			}
		}
		failed++
	}
	if failed == 0 {
		return nil
	}
	if first == nil {
		first = firstNoMatch
	}
	return fmt.Errorf("%d of %d sources failed to scan: %w", failed, len(results), first)
}

func newScanCmd(a *app) *cobra.Command {
	var sel selection
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan sources into the catalog",
		Args:  cobra.NoArgs,
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

			svc := scan.NewService(store, repos, extract.DefaultRegistry(), a.logger)
			results, err := svc.ScanSources(cmd.Context(), sel.sources, filters)
			if err != nil {
				return err
			}
			if err := a.print(results, scanResults(results)); err != nil {
				return err
			}

			return scanError(results)
		},
	}
	sel.bind(cmd.Flags())
	return cmd
}
