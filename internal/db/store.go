package db

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Dialect names the SQL flavour of a catalog store.
type Dialect string

// Supported catalog store dialects.
const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// Querier is satisfied by *sql.DB and *sql.Conn.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a catalog store handle. Statements are written with ? placeholders
// and rebound for the store's dialect. When the context carries a Session
// acquired from this Store, statements run on the session's connection.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// NewStore wraps an open pool.
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) querier(ctx context.Context) Querier {
	if sess := sessionFrom(ctx); sess != nil && sess.store == s {
		return sess.conn
	}
	return s.db
}

// ExecContext runs a statement that returns no rows.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.querier(ctx).ExecContext(ctx, s.Rebind(query), args...)
}

// QueryContext runs a query that returns rows.
func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.querier(ctx).QueryContext(ctx, s.Rebind(query), args...)
}

// QueryRowContext runs a query that returns at most one row.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.querier(ctx).QueryRowContext(ctx, s.Rebind(query), args...)
}

// InsertReturningID runs an INSERT and returns the generated id.
func (s *Store) InsertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := s.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
	return id, err
}

// Rebind rewrites ? placeholders into the store's native form.
func (s *Store) Rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	return rebindDollar(query)
}

// rebindDollar replaces ? with $1..$n, leaving quoted literals untouched.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint violation from either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
