package domain

import (
	"cmp"
	"slices"
	"time"
)

// Schema is a namespace inside a Source. (source_id, name) is unique.
type Schema struct {
	ID        int64
	SourceID  int64
	Name      string
	Source    *Source
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FQDN returns [source, schema].
func (s *Schema) FQDN() []string {
	if s == nil {
		return []string{"", ""}
	}
	return append(s.Source.FQDN(), s.Name)
}

// Equal reports whether two schemas have the same fully-qualified name.
func (s *Schema) Equal(o *Schema) bool {
	return o != nil && slices.Equal(s.FQDN(), o.FQDN())
}

// Table belongs to one Schema. (schema_id, name) is unique.
type Table struct {
	ID        int64
	SchemaID  int64
	Name      string
	Schema    *Schema
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FQDN returns [source, schema, table].
func (t *Table) FQDN() []string {
	if t == nil {
		return []string{"", "", ""}
	}
	return append(t.Schema.FQDN(), t.Name)
}

// Equal reports whether two tables have the same fully-qualified name.
func (t *Table) Equal(o *Table) bool {
	return o != nil && slices.Equal(t.FQDN(), o.FQDN())
}

// Column belongs to one Table. (table_id, name) is unique.
//
// SortOrder is the 0-based position reported by the last scan that touched
// the column.
type Column struct {
	ID        int64
	TableID   int64
	Name      string
	DataType  string
	SortOrder int
	PIIType   *PIIType
	PIIPlugin string
	Table     *Table
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FQDN returns [source, schema, table, column].
func (c *Column) FQDN() []string {
	return append(c.Table.FQDN(), c.Name)
}

// Equal reports whether two columns have the same fully-qualified name.
func (c *Column) Equal(o *Column) bool {
	return o != nil && slices.Equal(c.FQDN(), o.FQDN())
}

// CompareColumns orders columns by source, schema and table name, then by
// sort order within the table.
func CompareColumns(a, b *Column) int {
	af, bf := a.Table.FQDN(), b.Table.FQDN()
	if c := slices.Compare(af, bf); c != 0 {
		return c
	}
	return cmp.Compare(a.SortOrder, b.SortOrder)
}

// FQDN on a nil receiver yields empty ancestor names so that partially
// loaded entities can still be compared.
func (s *Source) FQDN() []string {
	if s == nil {
		return []string{""}
	}
	return []string{s.Name}
}

// Equal reports whether two sources have the same name.
func (s *Source) Equal(o *Source) bool {
	return o != nil && slices.Equal(s.FQDN(), o.FQDN())
}

// ColumnRecord is one column reported by an extraction stream.
type ColumnRecord struct {
	Name     string
	DataType string
}

// TableRecord is one table reported by an extraction stream, with its
// columns in the order the source reports them.
type TableRecord struct {
	Schema  string
	Table   string
	Columns []ColumnRecord
}

// ScanCounts is the number of distinct schemas, tables and columns a scan
// persisted.
type ScanCounts struct {
	Schemas int `json:"schemas"`
	Tables  int `json:"tables"`
	Columns int `json:"columns"`
}
