// Package util holds small shared helpers kept internal to avoid committing
// to public API stability prematurely.
package util

import "github.com/google/uuid"

// NewID generates a unique identifier used for events, execution contexts
// and workflow runs. Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
