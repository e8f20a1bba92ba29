// Package util hosts small helpers shared across packages without creating
// dependency cycles.
package util

import "github.com/google/uuid"

// NewID returns a new globally unique identifier (UUID v4 string).
func NewID() string { return uuid.NewString() }
