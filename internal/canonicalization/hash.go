package canonicalization

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortHashLen is the number of leading hex characters the ruleset metadata
// resolver embeds in every report (§3: "first 16 hex chars of SHA-256").
const shortHashLen = 16

// ContentHash computes the full 64-character lowercase hex SHA-256 digest of
// data. Used by the ruleset metadata resolver to fingerprint the active rules
// configuration file.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// ShortHash computes the ContentHash of data and returns its first 16 hex
// characters, the form embedded in the report.
func ShortHash(data []byte) string {
	full := ContentHash(data)
	if len(full) < shortHashLen {
		return full
	}

	return full[:shortHashLen]
}
