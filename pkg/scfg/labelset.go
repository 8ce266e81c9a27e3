package scfg

import "strings"

// LabelSet is an unordered set of labels. Sorted returns the members in
// label order; every pass iterates through it so results are reproducible.
type LabelSet map[Label]struct{}

// NewLabelSet returns a set holding ls.
func NewLabelSet(ls ...Label) LabelSet {
	s := make(LabelSet, len(ls))
	for _, l := range ls {
		s[l] = struct{}{}
	}
	return s
}

func (s LabelSet) Add(l Label) {
	s[l] = struct{}{}
}

func (s LabelSet) Remove(l Label) {
	delete(s, l)
}

func (s LabelSet) Has(l Label) bool {
	_, ok := s[l]
	return ok
}

func (s LabelSet) Len() int {
	return len(s)
}

// Sorted returns the members in label order.
func (s LabelSet) Sorted() []Label {
	out := make([]Label, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sortLabels(out)
	return out
}

// First returns the smallest member.
func (s LabelSet) First() (Label, bool) {
	var best Label
	found := false
	for l := range s {
		if !found || l.Less(best) {
			best, found = l, true
		}
	}
	return best, found
}

func (s LabelSet) Clone() LabelSet {
	out := make(LabelSet, len(s))
	for l := range s {
		out[l] = struct{}{}
	}
	return out
}

func (s LabelSet) Equal(o LabelSet) bool {
	if len(s) != len(o) {
		return false
	}
	for l := range s {
		if !o.Has(l) {
			return false
		}
	}
	return true
}

// Intersect removes every member that is not in o.
func (s LabelSet) Intersect(o LabelSet) {
	for l := range s {
		if !o.Has(l) {
			delete(s, l)
		}
	}
}

// Subtract removes every member of o.
func (s LabelSet) Subtract(o LabelSet) {
	for l := range o {
		delete(s, l)
	}
}

func (s LabelSet) String() string {
	parts := make([]string, 0, len(s))
	for _, l := range s.Sorted() {
		parts = append(parts, l.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
