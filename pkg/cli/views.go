package cli

import (
	"strconv"
	"time"

	"github.com/tokern/dbcat/internal/domain"
)

type sourceView struct {
	Name       string    `json:"name" yaml:"name"`
	SourceType string    `json:"source_type" yaml:"source_type"`
	Connection string    `json:"connection" yaml:"connection"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

type sourceList []sourceView

func newSourceList(sources []domain.Source) sourceList {
	out := make(sourceList, 0, len(sources))
	for i := range sources {
		s := &sources[i]
		out = append(out, sourceView{
			Name: s.Name, SourceType: string(s.SourceType), Connection: s.ConnString(true), UpdatedAt: s.UpdatedAt,
		})
	}
	return out
}

func (l sourceList) table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{s.Name, s.SourceType, s.Connection})
	}
	return []string{"name", "type", "connection"}, rows
}

type schemaView struct {
	Source string `json:"source" yaml:"source"`
	Schema string `json:"schema" yaml:"schema"`
}

type schemaList []schemaView

func newSchemaList(schemas []domain.Schema) schemaList {
	out := make(schemaList, 0, len(schemas))
	for i := range schemas {
		fqdn := schemas[i].FQDN()
		out = append(out, schemaView{Source: fqdn[0], Schema: fqdn[1]})
	}
	return out
}

func (l schemaList) table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{s.Source, s.Schema})
	}
	return []string{"source", "schema"}, rows
}

type tableView struct {
	Source string `json:"source" yaml:"source"`
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
}

type tableList []tableView

func newTableList(tables []domain.Table) tableList {
	out := make(tableList, 0, len(tables))
	for i := range tables {
		fqdn := tables[i].FQDN()
		out = append(out, tableView{Source: fqdn[0], Schema: fqdn[1], Table: fqdn[2]})
	}
	return out
}

func (l tableList) table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, t := range l {
		rows = append(rows, []string{t.Source, t.Schema, t.Table})
	}
	return []string{"source", "schema", "table"}, rows
}

type columnView struct {
	Source    string `json:"source" yaml:"source"`
	Schema    string `json:"schema" yaml:"schema"`
	Table     string `json:"table" yaml:"table"`
	Column    string `json:"column" yaml:"column"`
	DataType  string `json:"data_type" yaml:"data_type"`
	SortOrder int    `json:"sort_order" yaml:"sort_order"`
	PIIType   string `json:"pii_type,omitempty" yaml:"pii_type,omitempty"`
}

type columnList []columnView

func newColumnList(cols []domain.Column) columnList {
	out := make(columnList, 0, len(cols))
	for i := range cols {
		c := &cols[i]
		fqdn := c.FQDN()
		v := columnView{
			Source: fqdn[0], Schema: fqdn[1], Table: fqdn[2], Column: c.Name,
			DataType: c.DataType, SortOrder: c.SortOrder,
		}
		if c.PIIType != nil {
			v.PIIType = string(*c.PIIType)
		}
		out = append(out, v)
	}
	return out
}

func (l columnList) table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		rows = append(rows, []string{
			c.Source, c.Schema, c.Table, c.Column, c.DataType, strconv.Itoa(c.SortOrder), c.PIIType,
		})
	}
	return []string{"source", "schema", "table", "column", "type", "order", "pii"}, rows
}
