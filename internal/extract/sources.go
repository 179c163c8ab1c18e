package extract

import (
	"fmt"
	"net"
	"strconv"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
	_ "github.com/lib/pq"              // registers the postgres driver used for redshift
	_ "github.com/mattn/go-sqlite3"    // registers the sqlite3 driver
	"github.com/snowflakedb/gosnowflake"

	"github.com/tokern/dbcat/internal/domain"
)

const sqliteQuery = `
SELECT 'main', m.name, p.name, p.type
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
ORDER BY m.name, p.cid`

// infoSchemaQuery selects columns from information_schema, skipping the
// listed system schemas. Schema names are compiled in, never user input.
func infoSchemaQuery(extraWhere string, systemSchemas ...string) string {
	q := `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type
FROM information_schema.columns c
WHERE c.table_schema NOT IN (`
	for i, s := range systemSchemas {
		if i > 0 {
			q += ", "
		}
		q += "'" + s + "'"
	}
	q += ")"
	if extraWhere != "" {
		q += " AND " + extraWhere
	}
	return q + `
ORDER BY c.table_schema, c.table_name, c.ordinal_position`
}

// SQLite extracts a SQLite database file. Every table lands in schema "main".
func SQLite() *SQLCatalog {
	return &SQLCatalog{
		Driver: "sqlite3",
		DSN: func(src *domain.Source) (string, error) {
			if src.URI == "" {
				return "", domain.ErrValidation("sqlite source %q has no path", src.Name)
			}
			return fmt.Sprintf("file:%s?mode=ro", src.URI), nil
		},
		Query: sqliteQuery,
	}
}

// DuckDB extracts a DuckDB database file opened read-only.
func DuckDB() *SQLCatalog {
	return &SQLCatalog{
		Driver: "duckdb",
		DSN: func(src *domain.Source) (string, error) {
			if src.URI == "" {
				return "", domain.ErrValidation("duckdb source %q has no path", src.Name)
			}
			return src.URI + "?access_mode=read_only", nil
		},
		Query: infoSchemaQuery("c.table_catalog = current_database()", "information_schema", "pg_catalog"),
	}
}

// Postgres extracts a PostgreSQL database through pgx.
func Postgres() *SQLCatalog {
	return &SQLCatalog{
		Driver: "pgx",
		DSN:    connString,
		Query:  infoSchemaQuery("", "information_schema", "pg_catalog"),
	}
}

// Redshift extracts a Redshift cluster through lib/pq.
func Redshift() *SQLCatalog {
	return &SQLCatalog{
		Driver: "postgres",
		DSN:    connString,
		Query:  infoSchemaQuery("", "information_schema", "pg_catalog", "pg_internal"),
	}
}

// MySQL extracts every non-system schema visible to the configured user.
func MySQL() *SQLCatalog {
	return &SQLCatalog{
		Driver: "mysql",
		DSN: func(src *domain.Source) (string, error) {
			cfg := mysql.NewConfig()
			cfg.User = src.Username
			cfg.Passwd = src.Password
			cfg.Net = "tcp"
			cfg.Addr = net.JoinHostPort(src.URI, strconv.Itoa(src.EffectivePort()))
			cfg.DBName = src.Database
			cfg.Timeout = 30 * time.Second
			return cfg.FormatDSN(), nil
		},
		Query: infoSchemaQuery("", "information_schema", "performance_schema", "sys", "mysql"),
	}
}

// Snowflake extracts the configured Snowflake database.
func Snowflake() *SQLCatalog {
	return &SQLCatalog{
		Driver: "snowflake",
		DSN: func(src *domain.Source) (string, error) {
			dsn, err := gosnowflake.DSN(&gosnowflake.Config{
				Account:   src.Account,
				User:      src.Username,
				Password:  src.Password,
				Database:  src.Database,
				Warehouse: src.Warehouse,
				Role:      src.Role,
			})
			if err != nil {
				return "", domain.ErrValidation("snowflake source %q: %v", src.Name, err)
			}
			return dsn, nil
		},
		Query: infoSchemaQuery("", "INFORMATION_SCHEMA"),
	}
}

func connString(src *domain.Source) (string, error) {
	return src.ConnString(false), nil
}
