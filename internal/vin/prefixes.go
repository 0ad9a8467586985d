package vin

import (
	"strings"
)

// PrefixSet is an ordered set of upper-cased VIN prefixes.
// The zero value is an empty set ready for use.
type PrefixSet struct {
	order []string
}

// NewPrefixSet builds a set from the given prefixes. Blanks and repeats are skipped.
func NewPrefixSet(prefixes ...string) *PrefixSet {
	s := &PrefixSet{}
	for _, p := range prefixes {
		s.Add(p)
	}
	return s
}

// ParsePrefixes builds a set from a comma-separated list such as "1, 2,3".
func ParsePrefixes(list string) *PrefixSet {
	return NewPrefixSet(strings.Split(list, ",")...)
}

// Add inserts a prefix, reporting whether the set changed.
func (s *PrefixSet) Add(prefix string) bool {
	p := normalize(prefix)
	if p == "" || s.Has(p) {
		return false
	}
	s.order = append(s.order, p)
	return true
}

// Remove deletes a prefix, reporting whether the set changed.
func (s *PrefixSet) Remove(prefix string) bool {
	p := normalize(prefix)
	for i, existing := range s.order {
		if existing == p {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle adds a missing prefix or removes a present one. It returns the new membership.
func (s *PrefixSet) Toggle(prefix string) bool {
	if s.Remove(prefix) {
		return false
	}
	return s.Add(prefix)
}

// Has reports whether prefix is a member.
func (s *PrefixSet) Has(prefix string) bool {
	p := normalize(prefix)
	for _, existing := range s.order {
		if existing == p {
			return true
		}
	}
	return false
}

// Len returns the number of prefixes.
func (s *PrefixSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Values returns a copy of the prefixes in insertion order. An empty set
// yields an empty non-nil slice.
func (s *PrefixSet) Values() []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s.order...)
}

// Clone returns an independent copy.
func (s *PrefixSet) Clone() *PrefixSet {
	return NewPrefixSet(s.Values()...)
}

// String renders the set as a comma-separated list.
func (s *PrefixSet) String() string {
	return strings.Join(s.Values(), ",")
}

// MatchesAny reports whether candidate, upper-cased, starts with any member.
func (s *PrefixSet) MatchesAny(candidate string) bool {
	c := strings.ToUpper(candidate)
	for _, p := range s.Values() {
		if strings.HasPrefix(c, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

func normalize(prefix string) string {
	return strings.ToUpper(strings.TrimSpace(prefix))
}
