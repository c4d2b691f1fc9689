package domain

import "github.com/google/uuid"

// NewID returns a globally unique, time-sortable identifier (UUIDv7).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
