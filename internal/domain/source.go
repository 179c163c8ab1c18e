package domain

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SourceType identifies the kind of database or warehouse a Source points at.
type SourceType string

// Supported source types.
const (
	SourcePostgres  SourceType = "postgresql"
	SourceMySQL     SourceType = "mysql"
	SourceRedshift  SourceType = "redshift"
	SourceSnowflake SourceType = "snowflake"
	SourceBigQuery  SourceType = "bigquery"
	SourceGlue      SourceType = "glue"
	SourceAthena    SourceType = "athena"
	SourceSQLite    SourceType = "sqlite"
	SourceOracle    SourceType = "oracle"
	SourceDuckDB    SourceType = "duckdb"
	SourceFile      SourceType = "file"
)

// SourceTypes lists every known source type in registration order.
var SourceTypes = []SourceType{
	SourcePostgres, SourceMySQL, SourceRedshift, SourceSnowflake, SourceBigQuery,
	SourceGlue, SourceAthena, SourceSQLite, SourceOracle, SourceDuckDB, SourceFile,
}

// ParseSourceType validates a source type string.
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SourceTypes {
		if t == known {
			return t, nil
		}
	}
	return "", ErrValidation("unknown source type %q", s)
}

// Source is a registered database or warehouse connection. Name is unique
// and immutable once registered.
type Source struct {
	ID                  int64
	Name                string
	SourceType          SourceType
	Dialect             string
	URI                 string
	Port                int
	Username            string
	Password            string
	Database            string
	Instance            string
	Cluster             string
	ProjectID           string
	ProjectCredentials  string
	PageSize            int
	FilterKey           string
	IncludedTablesRegex string
	KeyPath             string
	Account             string
	Role                string
	Warehouse           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	RegionName          string
	S3StagingDir        string
	ServiceName         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

var defaultPorts = map[SourceType]int{
	SourcePostgres: 5432,
	SourceMySQL:    3306,
	SourceRedshift: 5439,
	SourceOracle:   1521,
}

// DefaultPort returns the conventional port for a network source type, or 0.
func DefaultPort(t SourceType) int {
	return defaultPorts[t]
}

// requiredFields lists the connection attributes each source type must carry.
var requiredFields = map[SourceType][]string{
	SourcePostgres:  {"uri", "username", "password", "database"},
	SourceMySQL:     {"uri", "username", "password", "database"},
	SourceRedshift:  {"uri", "username", "password", "database"},
	SourceSnowflake: {"account", "username", "password", "database", "warehouse", "role"},
	SourceBigQuery:  {"project_id", "key_path"},
	SourceAthena:    {"region_name", "s3_staging_dir", "aws_access_key_id", "aws_secret_access_key"},
	SourceGlue:      {"region_name", "aws_access_key_id", "aws_secret_access_key"},
	SourceSQLite:    {"uri"},
	SourceDuckDB:    {"uri"},
	SourceFile:      {"uri"},
	SourceOracle:    {"uri", "username", "password", "service_name"},
}

// RequiredFields returns the connection attributes a source type requires.
func RequiredFields(t SourceType) []string {
	return requiredFields[t]
}

func (s *Source) field(name string) string {
	switch name {
	case "uri":
		return s.URI
	case "username":
		return s.Username
	case "password":
		return s.Password
	case "database":
		return s.Database
	case "account":
		return s.Account
	case "warehouse":
		return s.Warehouse
	case "role":
		return s.Role
	case "project_id":
		return s.ProjectID
	case "key_path":
		return s.KeyPath
	case "region_name":
		return s.RegionName
	case "s3_staging_dir":
		return s.S3StagingDir
	case "aws_access_key_id":
		return s.AWSAccessKeyID
	case "aws_secret_access_key":
		return s.AWSSecretAccessKey
	case "service_name":
		return s.ServiceName
	}
	return ""
}

// Validate checks the name, the type and the type-specific required fields.
func (s *Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrValidation("source name is required")
	}
	if _, err := ParseSourceType(string(s.SourceType)); err != nil {
		return err
	}
	var missing []string
	for _, f := range RequiredFields(s.SourceType) {
		if strings.TrimSpace(s.field(f)) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return ErrValidation("%s source %q is missing required fields: %s",
			s.SourceType, s.Name, strings.Join(missing, ", "))
	}
	if s.Port < 0 || s.Port > 65535 {
		return ErrValidation("invalid port %d", s.Port)
	}
	return nil
}

// EffectivePort returns the configured port or the type's default.
func (s *Source) EffectivePort() int {
	if s.Port > 0 {
		return s.Port
	}
	return DefaultPort(s.SourceType)
}

// ConnString renders the connection as a URL. File-based sources return
// their path. Pass redact to mask the password for display.
func (s *Source) ConnString(redact bool) string {
	switch s.SourceType {
	case SourceSQLite, SourceDuckDB, SourceFile:
		return s.URI
	case SourceBigQuery:
		return fmt.Sprintf("bigquery://%s", s.ProjectID)
	case SourceGlue:
		return fmt.Sprintf("glue://%s", s.RegionName)
	case SourceAthena:
		return fmt.Sprintf("athena://%s?s3_staging_dir=%s", s.RegionName, url.QueryEscape(s.S3StagingDir))
	}

	scheme := string(s.SourceType)
	host := s.URI
	path := "/" + s.Database
	switch s.SourceType {
	case SourcePostgres, SourceRedshift:
		scheme = "postgres"
	case SourceSnowflake:
		host = s.Account
	case SourceOracle:
		path = "/" + s.ServiceName
	}
	if port := s.EffectivePort(); port > 0 {
		host = net.JoinHostPort(host, strconv.Itoa(port))
	}

	password := s.Password
	if redact && password != "" {
		password = "xxxxx"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: path}
	if s.Username != "" {
		u.User = url.UserPassword(s.Username, password)
	}
	if s.SourceType == SourceSnowflake {
		q := url.Values{}
		q.Set("warehouse", s.Warehouse)
		q.Set("role", s.Role)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// SourceSecrets carries the connection fields that may change after
// registration. Nil fields are left untouched.
type SourceSecrets struct {
	URI                *string
	Port               *int
	Username           *string
	Password           *string
	Database           *string
	KeyPath            *string
	ProjectCredentials *string
	Account            *string
	Role               *string
	Warehouse          *string
	AWSAccessKeyID     *string
	AWSSecretAccessKey *string
	RegionName         *string
	S3StagingDir       *string
}
