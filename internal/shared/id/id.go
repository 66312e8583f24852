// Package id generates the UUID identifiers used for every entity and event.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random (v4) UUID string.
func New() string {
	return uuid.NewString()
}

// NewOrdered returns a time-ordered (v7) UUID, used for event ids so that
// lexical order follows creation order. Falls back to v4 on failure.
func NewOrdered() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// Validate reports an error when s is not a canonical UUID.
func Validate(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid id %q: %w", s, err)
	}
	return nil
}
