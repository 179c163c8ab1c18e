// Package domain defines core types, interfaces, and errors for the metadata catalog.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AmbiguousMatchError indicates that a single-result lookup matched more than one row.
type AmbiguousMatchError struct {
	Message string
	Matches int
}

func (e *AmbiguousMatchError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ConfigurationError indicates that the catalog connection cannot be resolved.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// NoMatchesError is returned by a scan that wrote nothing for a source.
// RecordsSeen is the number of records the extractor produced before
// filtering; zero means the source itself has no tables.
type NoMatchesError struct {
	Source      string
	RecordsSeen int
}

func (e *NoMatchesError) Error() string {
	if e.EmptySource() {
		return fmt.Sprintf("source %q has no tables", e.Source)
	}
	return fmt.Sprintf("no schema or tables scanned in source %q: %d candidate tables were excluded by include/exclude patterns",
		e.Source, e.RecordsSeen)
}

// EmptySource reports whether the extractor returned no records at all.
func (e *NoMatchesError) EmptySource() bool { return e.RecordsSeen == 0 }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAmbiguous creates an AmbiguousMatchError with a formatted message.
func ErrAmbiguous(matches int, format string, args ...interface{}) *AmbiguousMatchError {
	return &AmbiguousMatchError{Message: fmt.Sprintf(format, args...), Matches: matches}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
