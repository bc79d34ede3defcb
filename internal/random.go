package internal

import (
	"strings"

	"github.com/google/uuid"
)

// NewTokenID returns a fresh opaque credential id: UUIDv4 hex without
// dashes, the format game clients expect for access and client tokens.
func NewTokenID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CompactUUID strips the dashes from a canonical UUID string. IDs stored by
// providers may be canonical; the wire format is always dashless.
func CompactUUID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
