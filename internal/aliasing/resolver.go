package aliasing

import "strings"

// Resolver maps deprecated gene symbols to their canonical form.
// Thread-safe for concurrent use (immutable after construction).
type Resolver struct {
	aliases map[string]string
}

// NewResolver builds a resolver from cfg. A nil config or one with no
// aliases produces a no-op resolver that always returns its input unchanged.
func NewResolver(cfg *Config) *Resolver {
	if cfg == nil || len(cfg.SymbolAliases) == 0 {
		return &Resolver{aliases: map[string]string{}}
	}

	normalized := make(map[string]string, len(cfg.SymbolAliases))

	for alias, canonical := range cfg.SymbolAliases {
		normalized[strings.ToUpper(strings.TrimSpace(alias))] = canonical
	}

	return &Resolver{aliases: normalized}
}

// AliasCount returns the number of configured aliases.
func (r *Resolver) AliasCount() int {
	if r == nil {
		return 0
	}

	return len(r.aliases)
}

// Resolve returns the canonical symbol for identifier, or identifier
// unchanged if no alias is configured for it. Lookup is case-insensitive.
func (r *Resolver) Resolve(identifier string) string {
	if r == nil || identifier == "" {
		return identifier
	}

	if canonical, ok := r.aliases[strings.ToUpper(strings.TrimSpace(identifier))]; ok {
		return canonical
	}

	return identifier
}

// Match reports whether identifier has a configured alias and, if so, its
// canonical form.
func (r *Resolver) Match(identifier string) (string, bool) {
	if r == nil || identifier == "" {
		return "", false
	}

	canonical, ok := r.aliases[strings.ToUpper(strings.TrimSpace(identifier))]

	return canonical, ok
}
