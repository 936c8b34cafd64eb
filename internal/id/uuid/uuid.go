// Package uuid generates run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator issues time-ordered run ids so exports and logs from successive
// runs sort chronologically.
type Generator struct{}

// New returns a Generator.
func New() Generator {
	return Generator{}
}

// NewRunID returns a fresh UUIDv7.
func (Generator) NewRunID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate run id: %w", err)
	}
	return id, nil
}

// Fixed always returns the same id; tests use it for deterministic output.
type Fixed uuid.UUID

// NewRunID implements the reconcile run id source.
func (f Fixed) NewRunID() (uuid.UUID, error) {
	return uuid.UUID(f), nil
}
