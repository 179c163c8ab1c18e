package extract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/tokern/dbcat/internal/domain"
)

// SQLCatalog extracts metadata by running one query against a database/sql
// driver. The query must return (schema, table, column, data_type) ordered
// by schema, table and column position.
type SQLCatalog struct {
	Driver string
	DSN    func(src *domain.Source) (string, error)
	Query  string

	open func(driver, dsn string) (*sql.DB, error)
}

// Open connects to the source and starts the metadata query.
func (c *SQLCatalog) Open(ctx context.Context, src *domain.Source) (Stream, error) {
	dsn, err := c.DSN(src)
	if err != nil {
		return nil, err
	}
	open := c.open
	if open == nil {
		open = sql.Open
	}
	db, err := open(c.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s source %q: %w", src.SourceType, src.Name, err)
	}
	rows, err := db.QueryContext(ctx, c.Query)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("query %s source %q metadata: %w", src.SourceType, src.Name, err)
	}
	return &rowStream{db: db, rows: rows}, nil
}

// rowStream folds consecutive rows of the same table into one record.
type rowStream struct {
	db      *sql.DB
	rows    *sql.Rows
	current *domain.TableRecord
}

func (s *rowStream) Next(ctx context.Context) (*domain.TableRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for s.rows.Next() {
		var schema, table, column string
		var dataType sql.NullString
		if err := s.rows.Scan(&schema, &table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		col := domain.ColumnRecord{Name: column, DataType: dataType.String}
		if s.current != nil && s.current.Schema == schema && s.current.Table == table {
			s.current.Columns = append(s.current.Columns, col)
			continue
		}
		done := s.current
		s.current = &domain.TableRecord{Schema: schema, Table: table, Columns: []domain.ColumnRecord{col}}
		if done != nil {
			return done, nil
		}
	}
	if err := s.rows.Err(); err != nil {
		return nil, fmt.Errorf("read metadata rows: %w", err)
	}
	if s.current != nil {
		done := s.current
		s.current = nil
		return done, nil
	}
	return nil, io.EOF
}

func (s *rowStream) Close() error {
	return errors.Join(s.rows.Close(), s.db.Close())
}
