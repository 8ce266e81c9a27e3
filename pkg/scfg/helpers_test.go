package scfg

import (
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-scfg/pkg/bytecode"
)

var listings = []string{
	"scenario_a",
	"loop",
	"while_loop",
	"if_else",
	"multi_return",
	"nested_loop",
	"loop_break",
	"while_at_entry",
}

// entryless lists the listings whose first block is also a loop header,
// so the raw graph has no node without predecessors.
var entryless = map[string]bool{
	"while_at_entry": true,
}

// bb builds a leaf covering [begin, begin+2) with the given targets.
func bb(begin int, targets ...int) *BasicBlock {
	var ts []Label
	for _, t := range targets {
		ts = append(ts, Offset(t))
	}
	return &BasicBlock{Begin: Offset(begin), End: Offset(begin + 2), JumpTargets: ts}
}

func mapOf(blocks ...Block) *BlockMap {
	m := NewBlockMap()
	for _, b := range blocks {
		m.AddNode(b)
	}
	return m
}

func offsets(vs ...int) []Label {
	out := make([]Label, len(vs))
	for i, v := range vs {
		out[i] = Offset(v)
	}
	return out
}

func loadListing(t *testing.T, name string) *ByteFlow {
	t.Helper()
	table := bytecode.DefaultTable()
	instrs, err := bytecode.ParseListingFile(filepath.Join("..", "..", "testdata", "listings", name+".lst"), table)
	require.NoError(t, err)
	return FromInstructions(instrs, table)
}

func region(t *testing.T, m *BlockMap, l Label) *RegionBlock {
	t.Helper()
	b, ok := m.Get(l)
	require.True(t, ok, "no node %s in %v", l, m.Labels())
	r, ok := b.(*RegionBlock)
	require.True(t, ok, "node %s is %T, not a region", l, b)
	return r
}

// regions returns every region below m, in walk order.
func regions(m *BlockMap, kind RegionKind) []*RegionBlock {
	var out []*RegionBlock
	_ = Walk(m, func(_ int, _ Label, b Block) error {
		if r, ok := b.(*RegionBlock); ok && r.Kind == kind {
			out = append(out, r)
		}
		return nil
	})
	return out
}

func dump(v interface{}) string {
	cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
	return cfg.Sdump(v)
}
