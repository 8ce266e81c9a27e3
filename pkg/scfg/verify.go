package scfg

import (
	"fmt"
)

// VerifyError lists the problems found by Verify.
type VerifyError struct {
	Problems []string
}

func (e *VerifyError) Error() string {
	if len(e.Problems) == 1 {
		return "structured graph is invalid: " + e.Problems[0]
	}
	return fmt.Sprintf("structured graph is invalid: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

func (e *VerifyError) Unwrap() error {
	return ErrInvariant
}

// Verify checks a restructured map: it must hold exactly one top-level
// node, a region, and every label in offsets must appear exactly once as a
// leaf somewhere below it. Leaves with other labels must be synthetic.
func Verify(m *BlockMap, offsets []Label) error {
	var problems []string
	if m.Len() != 1 {
		problems = append(problems, fmt.Sprintf("expected one top-level node, found %d", m.Len()))
	}
	for _, l := range m.Labels() {
		if _, ok := m.Graph[l].(*RegionBlock); !ok {
			problems = append(problems, fmt.Sprintf("top-level node %s is not a region", l))
		}
	}

	seen := make(map[Label]int)
	err := Walk(m, func(_ int, l Label, b Block) error {
		if _, ok := b.(*BasicBlock); !ok {
			return nil
		}
		if l != b.Base().Begin {
			problems = append(problems, fmt.Sprintf("leaf %s stored under %s", b.Base().Begin, l))
		}
		seen[l]++
		return nil
	})
	if err != nil {
		return err
	}

	want := NewLabelSet(offsets...)
	for _, l := range offsets {
		switch n := seen[l]; n {
		case 1:
		case 0:
			problems = append(problems, fmt.Sprintf("%s is missing", l))
		default:
			problems = append(problems, fmt.Sprintf("%s appears %d times", l, n))
		}
	}
	for _, l := range sortedCounts(seen) {
		if !want.Has(l) && !l.IsSynthetic() {
			problems = append(problems, fmt.Sprintf("unexpected leaf %s", l))
		}
		if l.IsSynthetic() && seen[l] > 1 {
			problems = append(problems, fmt.Sprintf("%s appears %d times", l, seen[l]))
		}
	}

	if len(problems) > 0 {
		return &VerifyError{Problems: problems}
	}
	return nil
}

func sortedCounts(m map[Label]int) []Label {
	out := make([]Label, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	sortLabels(out)
	return out
}
