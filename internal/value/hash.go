package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix allows a future
// change of algorithm without colliding with stored digests.
const (
	DomainSnapshot = "bindlab/snapshot/v1"
	DomainEvent    = "bindlab/event/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the content digest of a snapshot tree.
// Two aliases of one aggregate always produce the same digest; two distinct
// aggregates with equal contents do too, so digests say nothing about identity.
func Digest(snapshot any) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("Digest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// EventID computes a stable identifier for a journal entry.
func EventID(runID string, seq int64) string {
	return hashWithDomain(DomainEvent, []byte(fmt.Sprintf("%s:%d", runID, seq)))
}
