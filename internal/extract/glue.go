package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/tokern/dbcat/internal/domain"
)

// GlueAPI is the subset of the Glue client used for extraction.
type GlueAPI interface {
	glue.GetDatabasesAPIClient
	glue.GetTablesAPIClient
}

// Glue extracts the AWS Glue data catalog, which also backs Athena.
// Databases map to schemas; partition keys follow the regular columns.
type Glue struct {
	// NewClient overrides client construction.
	NewClient func(src *domain.Source) GlueAPI
}

func newGlueClient(src *domain.Source) GlueAPI {
	return glue.New(glue.Options{
		Region:      src.RegionName,
		Credentials: credentials.NewStaticCredentialsProvider(src.AWSAccessKeyID, src.AWSSecretAccessKey, ""),
	})
}

// Open lists the catalog's databases. Tables are paged lazily.
func (g *Glue) Open(ctx context.Context, src *domain.Source) (Stream, error) {
	newClient := g.NewClient
	if newClient == nil {
		newClient = newGlueClient
	}
	s := &glueStream{client: newClient(src), pageSize: int32(src.PageSize)}

	dbs := glue.NewGetDatabasesPaginator(s.client, &glue.GetDatabasesInput{}, func(o *glue.GetDatabasesPaginatorOptions) {
		if s.pageSize > 0 {
			o.Limit = s.pageSize
		}
	})
	for dbs.HasMorePages() {
		page, err := dbs.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list glue databases in %s: %w", src.RegionName, err)
		}
		for _, d := range page.DatabaseList {
			s.databases = append(s.databases, aws.ToString(d.Name))
		}
	}
	return s, nil
}

type glueStream struct {
	client   GlueAPI
	pageSize int32

	databases []string
	database  string
	pager     *glue.GetTablesPaginator
	buf       []types.Table
}

func (s *glueStream) Next(ctx context.Context) (*domain.TableRecord, error) {
	for len(s.buf) == 0 {
		if s.pager != nil && s.pager.HasMorePages() {
			page, err := s.pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("list glue tables of %q: %w", s.database, err)
			}
			s.buf = page.TableList
			continue
		}
		if len(s.databases) == 0 {
			return nil, io.EOF
		}
		s.database, s.databases = s.databases[0], s.databases[1:]
		s.pager = glue.NewGetTablesPaginator(s.client, &glue.GetTablesInput{DatabaseName: aws.String(s.database)},
			func(o *glue.GetTablesPaginatorOptions) {
				if s.pageSize > 0 {
					o.Limit = s.pageSize
				}
			})
	}
	t := s.buf[0]
	s.buf = s.buf[1:]

	rec := &domain.TableRecord{Schema: s.database, Table: aws.ToString(t.Name)}
	if t.StorageDescriptor != nil {
		for _, c := range t.StorageDescriptor.Columns {
			rec.Columns = append(rec.Columns, domain.ColumnRecord{Name: aws.ToString(c.Name), DataType: aws.ToString(c.Type)})
		}
	}
	for _, c := range t.PartitionKeys {
		rec.Columns = append(rec.Columns, domain.ColumnRecord{Name: aws.ToString(c.Name), DataType: aws.ToString(c.Type)})
	}
	return rec, nil
}

func (s *glueStream) Close() error { return nil }
