package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID   ID
	CellID  string
	Feature string
)

func (id RunID) String() string  { return ID(id).String() }
func (c CellID) String() string  { return string(c) }
func (f Feature) String() string { return string(f) }

// ParseRunLabel validates a run label used as a persistence key. Labels name
// directories, so path separators are rejected.
func ParseRunLabel(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", fmt.Errorf("%w: run label cannot be empty", ErrConfiguration)
	}
	if strings.ContainsAny(trimmed, "/\\") {
		return "", fmt.Errorf("%w: run label %q contains path separators", ErrConfiguration, trimmed)
	}
	return trimmed, nil
}
