package catalog

import (
	"context"

	"github.com/tokern/dbcat/internal/domain"
)

// NetworkSource holds the connection fields of host-based databases.
type NetworkSource struct {
	Name     string
	URI      string
	Port     int
	Username string
	Password string
	Database string
}

// SnowflakeSource holds the connection fields of a Snowflake account.
type SnowflakeSource struct {
	Name      string
	Account   string
	Username  string
	Password  string
	Database  string
	Warehouse string
	Role      string
}

// BigQuerySource holds the connection fields of a BigQuery project.
type BigQuerySource struct {
	Name                string
	ProjectID           string
	KeyPath             string
	ProjectCredentials  string
	PageSize            int
	FilterKey           string
	IncludedTablesRegex string
}

// AWSSource holds the connection fields of Glue and Athena catalogs.
type AWSSource struct {
	Name               string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	RegionName         string
	S3StagingDir       string
}

// AddSource validates and registers src. Duplicate names are a
// *domain.ConflictError.
func (s *Service) AddSource(ctx context.Context, src *domain.Source) (*domain.Source, error) {
	return s.sources.Add(ctx, src)
}

func (s *Service) addNetwork(ctx context.Context, t domain.SourceType, p NetworkSource) (*domain.Source, error) {
	return s.AddSource(ctx, &domain.Source{
		Name: p.Name, SourceType: t, URI: p.URI, Port: p.Port,
		Username: p.Username, Password: p.Password, Database: p.Database,
	})
}

// AddPostgreSQLSource registers a PostgreSQL database.
func (s *Service) AddPostgreSQLSource(ctx context.Context, p NetworkSource) (*domain.Source, error) {
	return s.addNetwork(ctx, domain.SourcePostgres, p)
}

// AddMySQLSource registers a MySQL database.
func (s *Service) AddMySQLSource(ctx context.Context, p NetworkSource) (*domain.Source, error) {
	return s.addNetwork(ctx, domain.SourceMySQL, p)
}

// AddRedshiftSource registers a Redshift cluster database.
func (s *Service) AddRedshiftSource(ctx context.Context, p NetworkSource) (*domain.Source, error) {
	return s.addNetwork(ctx, domain.SourceRedshift, p)
}

// AddSnowflakeSource registers a Snowflake database.
func (s *Service) AddSnowflakeSource(ctx context.Context, p SnowflakeSource) (*domain.Source, error) {
	return s.AddSource(ctx, &domain.Source{
		Name: p.Name, SourceType: domain.SourceSnowflake, Account: p.Account,
		Username: p.Username, Password: p.Password, Database: p.Database,
		Warehouse: p.Warehouse, Role: p.Role,
	})
}

// AddBigQuerySource registers a BigQuery project.
func (s *Service) AddBigQuerySource(ctx context.Context, p BigQuerySource) (*domain.Source, error) {
	return s.AddSource(ctx, &domain.Source{
		Name: p.Name, SourceType: domain.SourceBigQuery, ProjectID: p.ProjectID,
		KeyPath: p.KeyPath, ProjectCredentials: p.ProjectCredentials, PageSize: p.PageSize,
		FilterKey: p.FilterKey, IncludedTablesRegex: p.IncludedTablesRegex,
	})
}

// AddAthenaSource registers an Athena catalog. Metadata is read through Glue.
func (s *Service) AddAthenaSource(ctx context.Context, p AWSSource) (*domain.Source, error) {
	return s.addAWS(ctx, domain.SourceAthena, p)
}

// AddGlueSource registers an AWS Glue data catalog.
func (s *Service) AddGlueSource(ctx context.Context, p AWSSource) (*domain.Source, error) {
	return s.addAWS(ctx, domain.SourceGlue, p)
}

func (s *Service) addAWS(ctx context.Context, t domain.SourceType, p AWSSource) (*domain.Source, error) {
	return s.AddSource(ctx, &domain.Source{
		Name: p.Name, SourceType: t, AWSAccessKeyID: p.AWSAccessKeyID,
		AWSSecretAccessKey: p.AWSSecretAccessKey, RegionName: p.RegionName, S3StagingDir: p.S3StagingDir,
	})
}

// AddSQLiteSource registers a SQLite database file.
func (s *Service) AddSQLiteSource(ctx context.Context, name, path string) (*domain.Source, error) {
	return s.AddSource(ctx, &domain.Source{Name: name, SourceType: domain.SourceSQLite, URI: path})
}

// AddDuckDBSource registers a DuckDB database file.
func (s *Service) AddDuckDBSource(ctx context.Context, name, path string) (*domain.Source, error) {
	return s.AddSource(ctx, &domain.Source{Name: name, SourceType: domain.SourceDuckDB, URI: path})
}

// AddFileSource registers a JSON file describing schemata, tables and
// columns.
func (s *Service) AddFileSource(ctx context.Context, name, path string) (*domain.Source, error) {
	return s.AddSource(ctx, &domain.Source{Name: name, SourceType: domain.SourceFile, URI: path})
}

// UpdateSourceSecrets changes connection fields of a registered source.
func (s *Service) UpdateSourceSecrets(ctx context.Context, name string, sec domain.SourceSecrets) (*domain.Source, error) {
	return s.sources.UpdateSecrets(ctx, name, sec)
}

// DeleteSource removes a source and everything cataloged under it.
func (s *Service) DeleteSource(ctx context.Context, name string) error {
	return s.sources.Delete(ctx, name)
}
