// Package repository implements the domain repository interfaces on a
// catalog store (SQLite or Postgres).
package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/domain"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if db.IsUniqueViolation(err) {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}

// now returns the write timestamp for created_at/updated_at columns.
func now() time.Time {
	return time.Now().UTC()
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// likeClause appends "<col> LIKE ?" when pattern is set.
func likeClause(where []string, args []any, col, pattern string) ([]string, []any) {
	if pattern == "" {
		return where, args
	}
	return append(where, col+" LIKE ?"), append(args, pattern)
}

func whereSQL(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}

func requireName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrValidation("%s name is required", kind)
	}
	return nil
}
