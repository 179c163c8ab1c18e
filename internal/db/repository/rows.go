package repository

import (
	"database/sql"

	"github.com/tokern/dbcat/internal/domain"
)

const sourceColumns = `s.id, s.name, s.source_type, s.dialect, s.uri, s.port, s.username, s.password,
	s.database, s.instance, s.cluster, s.project_id, s.project_credentials, s.page_size,
	s.filter_key, s.included_tables_regex, s.key_path, s.account, s.role, s.warehouse,
	s.aws_access_key_id, s.aws_secret_access_key, s.region_name, s.s3_staging_dir,
	s.service_name, s.created_at, s.updated_at`

const schemaColumns = `sc.id, sc.source_id, sc.name, sc.created_at, sc.updated_at, ` + sourceColumns

const tableColumns = `t.id, t.schema_id, t.name, t.created_at, t.updated_at, ` + schemaColumns

const columnColumns = `c.id, c.table_id, c.name, c.data_type, c.sort_order, c.pii_type, c.pii_plugin,
	c.created_at, c.updated_at, ` + tableColumns

const schemaFrom = ` FROM schemata sc JOIN sources s ON s.id = sc.source_id`

const tableFrom = ` FROM tables t
	JOIN schemata sc ON sc.id = t.schema_id
	JOIN sources s ON s.id = sc.source_id`

const columnFrom = ` FROM columns c
	JOIN tables t ON t.id = c.table_id
	JOIN schemata sc ON sc.id = t.schema_id
	JOIN sources s ON s.id = sc.source_id`

type sourceRow struct {
	s          domain.Source
	sourceType string
	dialect    sql.NullString
	uri        sql.NullString
	port       sql.NullInt64
	username   sql.NullString
	password   sql.NullString
	database   sql.NullString
	instance   sql.NullString
	cluster    sql.NullString
	projectID  sql.NullString
	projCreds  sql.NullString
	pageSize   sql.NullInt64
	filterKey  sql.NullString
	inclRegex  sql.NullString
	keyPath    sql.NullString
	account    sql.NullString
	role       sql.NullString
	warehouse  sql.NullString
	awsKeyID   sql.NullString
	awsSecret  sql.NullString
	region     sql.NullString
	s3Staging  sql.NullString
	service    sql.NullString
}

func (r *sourceRow) dest() []any {
	return []any{
		&r.s.ID, &r.s.Name, &r.sourceType, &r.dialect, &r.uri, &r.port, &r.username, &r.password,
		&r.database, &r.instance, &r.cluster, &r.projectID, &r.projCreds, &r.pageSize,
		&r.filterKey, &r.inclRegex, &r.keyPath, &r.account, &r.role, &r.warehouse,
		&r.awsKeyID, &r.awsSecret, &r.region, &r.s3Staging,
		&r.service, &r.s.CreatedAt, &r.s.UpdatedAt,
	}
}

func (r *sourceRow) value() *domain.Source {
	s := r.s
	s.SourceType = domain.SourceType(r.sourceType)
	s.Dialect = r.dialect.String
	s.URI = r.uri.String
	s.Port = int(r.port.Int64)
	s.Username = r.username.String
	s.Password = r.password.String
	s.Database = r.database.String
	s.Instance = r.instance.String
	s.Cluster = r.cluster.String
	s.ProjectID = r.projectID.String
	s.ProjectCredentials = r.projCreds.String
	s.PageSize = int(r.pageSize.Int64)
	s.FilterKey = r.filterKey.String
	s.IncludedTablesRegex = r.inclRegex.String
	s.KeyPath = r.keyPath.String
	s.Account = r.account.String
	s.Role = r.role.String
	s.Warehouse = r.warehouse.String
	s.AWSAccessKeyID = r.awsKeyID.String
	s.AWSSecretAccessKey = r.awsSecret.String
	s.RegionName = r.region.String
	s.S3StagingDir = r.s3Staging.String
	s.ServiceName = r.service.String
	return &s
}

type schemaRow struct {
	sc     domain.Schema
	source sourceRow
}

func (r *schemaRow) dest() []any {
	return append([]any{&r.sc.ID, &r.sc.SourceID, &r.sc.Name, &r.sc.CreatedAt, &r.sc.UpdatedAt},
		r.source.dest()...)
}

func (r *schemaRow) value() *domain.Schema {
	sc := r.sc
	sc.Source = r.source.value()
	return &sc
}

type tableRow struct {
	t      domain.Table
	schema schemaRow
}

func (r *tableRow) dest() []any {
	return append([]any{&r.t.ID, &r.t.SchemaID, &r.t.Name, &r.t.CreatedAt, &r.t.UpdatedAt},
		r.schema.dest()...)
}

func (r *tableRow) value() *domain.Table {
	t := r.t
	t.Schema = r.schema.value()
	return &t
}

type columnRow struct {
	c         domain.Column
	piiType   sql.NullString
	piiPlugin sql.NullString
	table     tableRow
}

func (r *columnRow) dest() []any {
	return append([]any{&r.c.ID, &r.c.TableID, &r.c.Name, &r.c.DataType, &r.c.SortOrder,
		&r.piiType, &r.piiPlugin, &r.c.CreatedAt, &r.c.UpdatedAt},
		r.table.dest()...)
}

func (r *columnRow) value() *domain.Column {
	c := r.c
	if r.piiType.Valid {
		p := domain.PIIType(r.piiType.String)
		c.PIIType = &p
	}
	c.PIIPlugin = r.piiPlugin.String
	c.Table = r.table.value()
	return &c
}

func scanSource(sc rowScanner) (*domain.Source, error) {
	var r sourceRow
	if err := sc.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.value(), nil
}

func scanSchema(sc rowScanner) (*domain.Schema, error) {
	var r schemaRow
	if err := sc.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.value(), nil
}

func scanTable(sc rowScanner) (*domain.Table, error) {
	var r tableRow
	if err := sc.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.value(), nil
}

func scanColumn(sc rowScanner) (*domain.Column, error) {
	var r columnRow
	if err := sc.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.value(), nil
}

// collect drains rows with scan, closing rows on every path.
func collect[T any](rows *sql.Rows, scan func(rowScanner) (*T, error)) ([]T, error) {
	defer rows.Close() //nolint:errcheck

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

