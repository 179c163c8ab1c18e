package domain

import "github.com/google/uuid"

// NewRunID generates a UUIDv7 string identifying one scan or export run.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
