package utils

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Id sizes used across the API. Events keep the full 21-char id, saved
// notification channels use 8, and creatable teams get a short 6-char stamp.
const (
	EventIDSize   = 21
	WebhookIDSize = 8
	TeamIDSize    = 6
)

// NewUniqueID returns a collision-resistant random id of the given size.
func NewUniqueID(size int) (string, error) {
	return gonanoid.New(size)
}

// Normalize lowercases a string and strips spaces, for loose name comparisons.
func Normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}
