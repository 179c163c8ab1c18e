package extract

import (
	"context"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokern/dbcat/internal/domain"
)

// fakeGlue pages tables by using the page index as the continuation token.
type fakeGlue struct {
	databases []string
	tables    map[string][][]types.Table
}

func (f *fakeGlue) GetDatabases(_ context.Context, _ *glue.GetDatabasesInput, _ ...func(*glue.Options)) (*glue.GetDatabasesOutput, error) {
	out := &glue.GetDatabasesOutput{}
	for _, d := range f.databases {
		out.DatabaseList = append(out.DatabaseList, types.Database{Name: aws.String(d)})
	}
	return out, nil
}

func (f *fakeGlue) GetTables(_ context.Context, in *glue.GetTablesInput, _ ...func(*glue.Options)) (*glue.GetTablesOutput, error) {
	pages := f.tables[aws.ToString(in.DatabaseName)]
	idx := 0
	if in.NextToken != nil {
		idx, _ = strconv.Atoi(*in.NextToken)
	}
	out := &glue.GetTablesOutput{}
	if idx < len(pages) {
		out.TableList = pages[idx]
	}
	if idx+1 < len(pages) {
		out.NextToken = aws.String(strconv.Itoa(idx + 1))
	}
	return out, nil
}

func glueTable(name string, cols, partitions []types.Column) types.Table {
	return types.Table{
		Name:              aws.String(name),
		StorageDescriptor: &types.StorageDescriptor{Columns: cols},
		PartitionKeys:     partitions,
	}
}

func glueCol(name, typ string) types.Column {
	return types.Column{Name: aws.String(name), Type: aws.String(typ)}
}

func TestGlue_PagesThroughDatabases(t *testing.T) {
	fake := &fakeGlue{
		databases: []string{"empty", "sales"},
		tables: map[string][][]types.Table{
			"sales": {
				{glueTable("orders", []types.Column{glueCol("id", "bigint")}, []types.Column{glueCol("dt", "string")})},
				{glueTable("customers", []types.Column{glueCol("name", "string")}, nil)},
			},
		},
	}
	g := &Glue{NewClient: func(*domain.Source) GlueAPI { return fake }}
	src := &domain.Source{Name: "lake", SourceType: domain.SourceAthena, RegionName: "us-east-1", PageSize: 1}

	s, err := g.Open(context.Background(), src)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	assert.Equal(t, []domain.TableRecord{
		{Schema: "sales", Table: "orders", Columns: []domain.ColumnRecord{col("id", "bigint"), col("dt", "string")}},
		{Schema: "sales", Table: "customers", Columns: []domain.ColumnRecord{col("name", "string")}},
	}, collectAll(t, s))
}
