package id

import "github.com/google/uuid"

// New returns a unique identifier for items and sessions.
func New() string {
	return uuid.NewString()
}
