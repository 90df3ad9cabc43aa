package signatures

import (
	"sort"
	"strings"
)

// Set is an immutable set of content fingerprints. The zero value is an
// empty set. Operations that change membership return a new Set, so a Set
// handed to a scan is never affected by later store updates.
type Set struct {
	m map[string]struct{}
}

// NewSet builds a set from fingerprints, normalizing them to lowercase and
// dropping empty entries
func NewSet(fingerprints ...string) Set {
	m := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		if fp = Normalize(fp); fp != "" {
			m[fp] = struct{}{}
		}
	}
	return Set{m: m}
}

// Normalize returns the canonical form of a fingerprint
func Normalize(fp string) string {
	return strings.ToLower(strings.TrimSpace(fp))
}

// Contains reports whether fp is in the set
func (s Set) Contains(fp string) bool {
	_, ok := s.m[fp]
	return ok
}

// Len returns the number of fingerprints
func (s Set) Len() int {
	return len(s.m)
}

// Sorted returns the fingerprints in ascending order. Never nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s.m))
	for fp := range s.m {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}

// Union returns s plus every fingerprint of other, and how many of them
// were not already in s
func (s Set) Union(other Set) (Set, int) {
	m := make(map[string]struct{}, len(s.m)+len(other.m))
	for fp := range s.m {
		m[fp] = struct{}{}
	}
	added := 0
	for fp := range other.m {
		if _, ok := m[fp]; !ok {
			m[fp] = struct{}{}
			added++
		}
	}
	return Set{m: m}, added
}

// Without returns s minus fp, and whether fp was present
func (s Set) Without(fp string) (Set, bool) {
	fp = Normalize(fp)
	if !s.Contains(fp) {
		return s, false
	}
	m := make(map[string]struct{}, len(s.m)-1)
	for k := range s.m {
		if k != fp {
			m[k] = struct{}{}
		}
	}
	return Set{m: m}, true
}

// Equal reports whether both sets hold the same fingerprints
func (s Set) Equal(other Set) bool {
	if len(s.m) != len(other.m) {
		return false
	}
	for fp := range s.m {
		if _, ok := other.m[fp]; !ok {
			return false
		}
	}
	return true
}
