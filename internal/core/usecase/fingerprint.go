package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// Fingerprint derives the cache key of a query: a stable hash of the
// normalized query text and the structured filters. The chosen
// strategy deliberately does not participate, so a repeated query hits
// the cache regardless of how the first run was routed.
func Fingerprint(query domain.Query) string {
	h := sha256.New()

	h.Write([]byte(normalizeQueryText(query.Text)))
	h.Write([]byte{0})
	h.Write([]byte(query.Filter.Role))
	h.Write([]byte{0})
	h.Write([]byte(query.Filter.Category))
	h.Write([]byte{0})
	h.Write([]byte(query.Filter.Locale))

	return hex.EncodeToString(h.Sum(nil))
}

func normalizeQueryText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
