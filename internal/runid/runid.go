// Package runid names crawl runs. Artifacts, database rows and notifications
// of one run share its ID.
package runid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates run identifiers.
type Generator interface {
	NewID() (string, error)
}

// UUIDv7 generates time-ordered UUIDv7 strings.
type UUIDv7 struct{}

// NewID returns a UUIDv7 string.
func (UUIDv7) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Static always returns the same ID. Useful for reproducible artifact paths.
type Static string

// NewID returns s.
func (s Static) NewID() (string, error) { return string(s), nil }
