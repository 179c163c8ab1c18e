package extract

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"

	"github.com/tokern/dbcat/internal/domain"
)

// BigQuery extracts every dataset of a project through the BigQuery REST API.
// Datasets map to schemas. RECORD fields are flattened to dotted names
// after their parent column.
type BigQuery struct {
	// ClientOptions replace the source's service account credentials when set.
	ClientOptions []option.ClientOption
}

// Open lists the project's datasets. Tables are fetched lazily per dataset.
func (b *BigQuery) Open(ctx context.Context, src *domain.Source) (Stream, error) {
	opts := b.ClientOptions
	if len(opts) == 0 {
		switch {
		case src.ProjectCredentials != "":
			opts = []option.ClientOption{option.WithAuthCredentialsJSON(option.ServiceAccount, []byte(src.ProjectCredentials))}
		case src.KeyPath != "":
			opts = []option.ClientOption{option.WithAuthCredentialsFile(option.ServiceAccount, src.KeyPath)}
		default:
			return nil, domain.ErrValidation("bigquery source %q has no credentials", src.Name)
		}
	}

	var include *regexp.Regexp
	if src.IncludedTablesRegex != "" {
		re, err := regexp.Compile(src.IncludedTablesRegex)
		if err != nil {
			return nil, domain.ErrValidation("bigquery source %q: invalid included tables regex: %v", src.Name, err)
		}
		include = re
	}

	svc, err := bigquery.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	s := &bigQueryStream{svc: svc, project: src.ProjectID, pageSize: int64(src.PageSize), include: include}
	call := svc.Datasets.List(src.ProjectID)
	if s.pageSize > 0 {
		call = call.MaxResults(s.pageSize)
	}
	if src.FilterKey != "" {
		call = call.Filter(src.FilterKey)
	}
	err = call.Pages(ctx, func(page *bigquery.DatasetList) error {
		for _, d := range page.Datasets {
			if d.DatasetReference != nil {
				s.datasets = append(s.datasets, d.DatasetReference.DatasetId)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list datasets of %q: %w", src.ProjectID, err)
	}
	return s, nil
}

type bigQueryStream struct {
	svc      *bigquery.Service
	project  string
	pageSize int64
	include  *regexp.Regexp

	datasets []string
	dataset  string
	tables   []string
}

func (s *bigQueryStream) Next(ctx context.Context) (*domain.TableRecord, error) {
	for len(s.tables) == 0 {
		if len(s.datasets) == 0 {
			return nil, io.EOF
		}
		s.dataset, s.datasets = s.datasets[0], s.datasets[1:]
		if err := s.listTables(ctx); err != nil {
			return nil, err
		}
	}
	id := s.tables[0]
	s.tables = s.tables[1:]

	t, err := s.svc.Tables.Get(s.project, s.dataset, id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get table %s.%s: %w", s.dataset, id, err)
	}
	rec := &domain.TableRecord{Schema: s.dataset, Table: id}
	if t.Schema != nil {
		rec.Columns = flattenFields("", t.Schema.Fields, nil)
	}
	return rec, nil
}

func (s *bigQueryStream) listTables(ctx context.Context) error {
	call := s.svc.Tables.List(s.project, s.dataset)
	if s.pageSize > 0 {
		call = call.MaxResults(s.pageSize)
	}
	err := call.Pages(ctx, func(page *bigquery.TableList) error {
		for _, t := range page.Tables {
			if t.TableReference == nil {
				continue
			}
			if s.include != nil && !s.include.MatchString(t.TableReference.TableId) {
				continue
			}
			s.tables = append(s.tables, t.TableReference.TableId)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list tables of dataset %q: %w", s.dataset, err)
	}
	return nil
}

func (s *bigQueryStream) Close() error { return nil }

func flattenFields(prefix string, fields []*bigquery.TableFieldSchema, out []domain.ColumnRecord) []domain.ColumnRecord {
	for _, f := range fields {
		name := prefix + f.Name
		out = append(out, domain.ColumnRecord{Name: name, DataType: f.Type})
		if len(f.Fields) > 0 {
			out = flattenFields(name+".", f.Fields, out)
		}
	}
	return out
}
