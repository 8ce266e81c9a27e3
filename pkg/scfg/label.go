// Package scfg restructures a jump-based control-flow graph into nested
// single-entry/single-exit regions.
//
// A graph is a BlockMap: a table of blocks keyed by Label whose edges are
// plain label values. Leaf blocks (BasicBlock) come from the instruction
// stream; region blocks (RegionBlock) are created by the loop and branch
// restructuring passes and own an independent nested BlockMap.
package scfg

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// LabelKind distinguishes labels taken from the instruction stream from
// labels minted while restructuring.
type LabelKind uint8

const (
	OffsetLabel    LabelKind = iota // Instruction offset in the original stream
	SyntheticLabel                  // Index minted by a LabelGenerator
)

// Label identifies a node in a BlockMap. Labels are comparable and can be
// used as map keys.
type Label struct {
	Kind  LabelKind
	Value int
}

// Offset returns the label of an instruction offset.
func Offset(off int) Label {
	return Label{Kind: OffsetLabel, Value: off}
}

// Synthetic returns the synthetic label with the given index.
func Synthetic(index int) Label {
	return Label{Kind: SyntheticLabel, Value: index}
}

// IsSynthetic reports whether l was minted during restructuring.
func (l Label) IsSynthetic() bool {
	return l.Kind == SyntheticLabel
}

// Less orders offset labels before synthetic ones, then by value.
func (l Label) Less(o Label) bool {
	if l.Kind != o.Kind {
		return l.Kind < o.Kind
	}
	return l.Value < o.Value
}

func (l Label) String() string {
	if l.Kind == SyntheticLabel {
		return "cl_" + strconv.Itoa(l.Value)
	}
	return "bc_" + strconv.Itoa(l.Value)
}

// ParseLabel is the inverse of Label.String.
func ParseLabel(s string) (Label, error) {
	var kind LabelKind
	switch {
	case strings.HasPrefix(s, "bc_"):
		kind = OffsetLabel
	case strings.HasPrefix(s, "cl_"):
		kind = SyntheticLabel
	default:
		return Label{}, fmt.Errorf("invalid label %q", s)
	}
	v, err := strconv.Atoi(s[3:])
	if err != nil {
		return Label{}, fmt.Errorf("invalid label %q: %w", s, err)
	}
	return Label{Kind: kind, Value: v}, nil
}

func sortLabels(ls []Label) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].Less(ls[j]) })
}

// LabelGenerator mints synthetic labels. A single generator must be shared
// by every pass of one restructuring run so that no label is minted twice;
// allocation is serialised so the guarantee survives concurrent callers.
type LabelGenerator struct {
	mu   sync.Mutex
	next int
}

// NewLabelGenerator returns a generator starting at index 0.
func NewLabelGenerator() *LabelGenerator {
	return &LabelGenerator{}
}

// Next returns a fresh synthetic label.
func (g *LabelGenerator) Next() Label {
	g.mu.Lock()
	defer g.mu.Unlock()
	l := Synthetic(g.next)
	g.next++
	return l
}

// Count returns the number of labels minted so far.
func (g *LabelGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
