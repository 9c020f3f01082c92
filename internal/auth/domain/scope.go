package domain

import (
	"slices"
	"strings"
)

// Scope is a validated, de-duplicated, space-delimited scope set kept in
// the order the server configured it.
type Scope []string

// ParseScope splits a scope parameter.
func ParseScope(s string) Scope {
	var out Scope
	for _, f := range strings.Fields(s) {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func (s Scope) String() string { return strings.Join(s, " ") }

// SubsetOf reports whether every value in s appears in other.
func (s Scope) SubsetOf(other Scope) bool {
	for _, v := range s {
		if !slices.Contains(other, v) {
			return false
		}
	}
	return true
}

// Ordered returns s sorted by the position of each value in reference, so
// equal sets always print the same way.
func (s Scope) Ordered(reference Scope) Scope {
	out := make(Scope, 0, len(s))
	for _, v := range reference {
		if slices.Contains(s, v) {
			out = append(out, v)
		}
	}
	for _, v := range s {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
