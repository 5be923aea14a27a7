package vault

import (
	"crypto/md5"
	"strings"

	"github.com/google/uuid"
)

// DerivePK hashes the given components into a stable primary key: the fields
// joined by a single space, digested with md5, rendered as a UUID string.
// The component list, including its order and length, is part of the
// external contract; callers that recompute a key must pass the exact same
// components. The digest is not cryptographic and collisions across distinct
// inputs are an accepted trade-off.
func DerivePK(fields ...string) string {
	sum := md5.Sum([]byte(strings.Join(fields, " ")))
	id, _ := uuid.FromBytes(sum[:])
	return id.String()
}
