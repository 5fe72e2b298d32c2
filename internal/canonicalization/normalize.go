// Package canonicalization provides canonical cache-key construction and
// content hashing for the lookup subsystem and the ruleset metadata resolver.
package canonicalization

import "strings"

// FoldIdentifier case-folds and trims an organism or identifier value so that
// "BRCA1", "brca1", and " BRCA1 " all resolve to the same cache entry while
// the original casing is preserved by the caller for error messages.
func FoldIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
