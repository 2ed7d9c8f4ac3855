// Package cache stores computed query answers per tenant with a time-to-live.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const keyPrefix = "query:"

// Normalize trims the query and collapses internal whitespace runs to one space.
func Normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// Key derives the cache key for a tenant's query. The tenant id is part of
// the key, so identical queries from different tenants never share an entry.
func Key(tenantID uuid.UUID, query string) string {
	sum := sha256.Sum256([]byte(Normalize(query)))
	return keyPrefix + tenantID.String() + ":" + hex.EncodeToString(sum[:])
}
