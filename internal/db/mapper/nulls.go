// Package mapper converts between domain, database, and API layer types.
package mapper

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// NullStrFromStr converts a string to sql.NullString (empty string → NULL).
func NullStrFromStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullIntFromInt converts an int to sql.NullInt64 (zero → NULL).
func NullIntFromInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}

// NullIntFromPtr converts a *int64 to sql.NullInt64.
func NullIntFromPtr(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// PtrFromNullInt converts a sql.NullInt64 to *int64.
func PtrFromNullInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// UTC normalizes a timestamp before it is written, so that stores without a
// native timestamp type compare stored values lexically in one offset.
func UTC(t time.Time) time.Time {
	return t.UTC()
}

// ContextToDB encodes an opaque context payload as JSON text (nil → NULL).
func ContextToDB(ctx map[string]any) (sql.NullString, error) {
	if ctx == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(ctx)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode context: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// ContextFromDB decodes a JSON context payload (NULL → nil).
func ContextFromDB(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return out, nil
}
