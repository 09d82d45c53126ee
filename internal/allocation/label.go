package allocation

import (
	"strings"
	"unicode"
)

// NormalizeLabel returns the comparison form of a resource label: trimmed,
// upper-cased, with every whitespace rune and hyphen removed.  Two labels
// that normalize identically name the same physical resource.
func NormalizeLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range strings.TrimSpace(label) {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// SameLabel reports whether a and b name the same resource.
func SameLabel(a, b string) bool {
	return NormalizeLabel(a) == NormalizeLabel(b)
}
