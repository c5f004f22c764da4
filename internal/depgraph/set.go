package depgraph

import "sort"

// set is an unordered set of symbol names.
type set map[string]struct{}

func newSet(items ...string) set {
	s := make(set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s set) has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s set) add(item string) {
	s[item] = struct{}{}
}

func (s set) addAll(other set) {
	for item := range other {
		s[item] = struct{}{}
	}
}

func (s set) clone() set {
	out := make(set, len(s))
	out.addAll(s)
	return out
}

func (s set) equal(other set) bool {
	if len(s) != len(other) {
		return false
	}
	for item := range s {
		if !other.has(item) {
			return false
		}
	}
	return true
}

func (s set) intersects(other set) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for item := range small {
		if large.has(item) {
			return true
		}
	}
	return false
}

// sorted returns the members in ascending order.
func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
