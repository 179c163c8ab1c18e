package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tokern/dbcat/internal/domain"
)

// catalogFile is the layout read by JSONFile:
//
//	{"name": "db", "schemata": [{"name": "public", "tables": [
//	    {"name": "users", "columns": [{"name": "id", "type": "integer"}]}]}]}
type catalogFile struct {
	Name     string `json:"name"`
	Schemata []struct {
		Name   string `json:"name"`
		Tables []struct {
			Name    string `json:"name"`
			Columns []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"columns"`
		} `json:"tables"`
	} `json:"schemata"`
}

// JSONFile extracts a JSON document describing schemata, tables and
// columns. The file path is the source URI.
func JSONFile() Strategy {
	return StrategyFunc(func(_ context.Context, src *domain.Source) (Stream, error) {
		if src.URI == "" {
			return nil, domain.ErrValidation("file source %q has no path", src.Name)
		}
		data, err := os.ReadFile(src.URI)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src.URI, err)
		}
		var doc catalogFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, domain.ErrValidation("parse %s: %v", src.URI, err)
		}

		var records []domain.TableRecord
		for _, sc := range doc.Schemata {
			if sc.Name == "" {
				return nil, domain.ErrValidation("%s: schema without a name", src.URI)
			}
			for _, t := range sc.Tables {
				if t.Name == "" {
					return nil, domain.ErrValidation("%s: table without a name in schema %q", src.URI, sc.Name)
				}
				rec := domain.TableRecord{Schema: sc.Name, Table: t.Name}
				for _, c := range t.Columns {
					if c.Name == "" {
						return nil, domain.ErrValidation("%s: column without a name in %s.%s", src.URI, sc.Name, t.Name)
					}
					rec.Columns = append(rec.Columns, domain.ColumnRecord{Name: c.Name, DataType: c.Type})
				}
				records = append(records, rec)
			}
		}
		return NewSliceStream(records...), nil
	})
}
