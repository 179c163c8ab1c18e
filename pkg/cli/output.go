package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

func validateOutputFormat(output string) error {
	switch output {
	case "table", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unsupported output format %q: use 'table', 'json' or 'yaml'", output)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// printTable writes aligned columns with an upper-cased header row.
func printTable(w io.Writer, columns []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// tabular is a value that can render itself as a table.
type tabular interface {
	table() ([]string, [][]string)
}

// print renders v in the selected output format. Table mode uses t and
// falls back to YAML when t is nil.
func (a *app) print(v any, t tabular) error {
	switch a.output {
	case "json":
		return printJSON(a.stdout, v)
	case "yaml":
		return printYAML(a.stdout, v)
	}
	if t == nil {
		return printYAML(a.stdout, v)
	}
	cols, rows := t.table()
	return printTable(a.stdout, cols, rows)
}
