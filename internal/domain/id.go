package domain

import "github.com/google/uuid"

// NewID returns a lowercase hyphenated hex UUID, the identifier format used
// throughout the data model (§3).
func NewID() string {
	return uuid.New().String()
}
