package config

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested resource does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint (for example a duplicate username).
var ErrConflict = errors.New("already exists")

// isUniqueViolation recognises unique-constraint failures across the sqlite,
// postgres and mysql drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
