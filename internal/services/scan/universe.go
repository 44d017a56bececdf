package scan

import (
	"strings"
	"unicode"
)

// MaxSymbolLength caps a cleaned symbol
const MaxSymbolLength = 5

// NormalizeSymbol upper-cases raw, drops every non A-Z character and
// truncates to MaxSymbolLength. An empty result means the symbol is invalid.
func NormalizeSymbol(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(r)
		if b.Len() == MaxSymbolLength {
			break
		}
	}
	return b.String()
}

// BuildUniverse concatenates the symbol lists in order, normalizes every
// entry and drops duplicates keeping the first occurrence. Raw inputs that
// clean to nothing are returned in rejected.
func BuildUniverse(lists ...[]string) (universe []string, rejected []string) {
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, raw := range list {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			sym := NormalizeSymbol(raw)
			if sym == "" {
				rejected = append(rejected, raw)
				continue
			}
			if seen[sym] {
				continue
			}
			seen[sym] = true
			universe = append(universe, sym)
		}
	}
	return universe, rejected
}
