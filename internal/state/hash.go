package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for state fingerprints. The version suffix leaves room
// for a future canonical-encoding migration.
const domainState = "demiurge/state/v1"

// Fingerprint computes a content-addressed identity for a state.
// Format: SHA256(domain + 0x00 + canonical JSON). The null separator
// keeps the domain/data boundary unambiguous.
//
// Fingerprints are stable across process restarts and are what the
// trace store records instead of full state snapshots, so that two
// runs can be compared for determinism without replaying either.
func Fingerprint(m Map) (string, error) {
	canonical, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(domainState))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
