package models

import (
	"strings"
	"unicode"
)

// FieldPath addresses one field inside a nested template schema. Both
// rendered forms are computed once at construction and never change.
type FieldPath struct {
	Keys           []string `json:"keys"`
	DotPath        string   `json:"dotPath"`
	NormalizedPath string   `json:"normalizedPath"`
}

// NewFieldPath builds a FieldPath from ordered schema keys.
func NewFieldPath(keys ...string) FieldPath {
	copied := make([]string, len(keys))
	copy(copied, keys)
	dot := strings.Join(copied, ".")
	return FieldPath{
		Keys:           copied,
		DotPath:        dot,
		NormalizedPath: NormalizeTerm(dot),
	}
}

// NormalizeTerm case-folds a path segment or field value for matching:
// every non-alphanumeric rune is dropped and the rest upper-cased.
func NormalizeTerm(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// IsTermURI reports whether a value string is an ontology term identifier.
// Term identifiers are compared verbatim instead of being normalized.
func IsTermURI(s string) bool {
	return strings.Contains(s, "://")
}

// NormalizeValue normalizes a field value for rule matching. Ontology term
// identifiers pass through verbatim, everything else is case-folded.
func NormalizeValue(s string) string {
	if IsTermURI(s) {
		return s
	}
	return NormalizeTerm(s)
}
