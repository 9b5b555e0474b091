package store

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 32-hex-character random identifier, matching the
// target, transaction and query identifiers issued by the real service.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
