package cfg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-scfg/pkg/bytecode"
	"github.com/l3aro/go-scfg/pkg/scfg"
)

func leaf(begin int, targets ...int) *scfg.BasicBlock {
	b := &scfg.BasicBlock{Begin: scfg.Offset(begin), End: scfg.Offset(begin + 2)}
	for _, t := range targets {
		b.JumpTargets = append(b.JumpTargets, scfg.Offset(t))
	}
	return b
}

// loopGraph is 0 -> loop{2 -> 4 -> back to 2} -> 6, wrapped in one tail region.
func loopGraph() *scfg.BlockMap {
	latch := leaf(4, 6)
	latch.Backedges = []scfg.Label{scfg.Offset(2)}
	body := scfg.NewBlockMap()
	body.AddNode(latch)

	exit := scfg.Offset(4)
	loop := &scfg.RegionBlock{
		BasicBlock: scfg.BasicBlock{Begin: scfg.Offset(2), End: scfg.Offset(6), JumpTargets: []scfg.Label{scfg.Offset(6)}},
		Kind:       scfg.RegionLoop,
		Headers:    map[scfg.Label]scfg.Block{scfg.Offset(2): leaf(2, 4)},
		Subregion:  body,
		Exit:       &exit,
	}

	inner := scfg.NewBlockMap()
	inner.AddNode(leaf(0, 2))
	inner.AddNode(loop)
	inner.AddNode(leaf(6))

	end := scfg.Offset(6)
	root := scfg.NewBlockMap()
	root.AddNode(&scfg.RegionBlock{
		BasicBlock: scfg.BasicBlock{Begin: scfg.Offset(0), End: scfg.Offset(0)},
		Kind:       scfg.RegionTail,
		Subregion:  inner,
		Exit:       &end,
	})
	return root
}

func TestExportLoopGraph(t *testing.T) {
	info, err := Export("loop", loopGraph())
	require.NoError(t, err)

	assert.Equal(t, "loop", info.Name)
	assert.Equal(t, []string{"tail:bc_0"}, info.RootIDs)

	root, ok := info.Block("tail:bc_0")
	require.True(t, ok)
	assert.Equal(t, BlockTypeTail, root.Type)
	assert.Equal(t, []string{"bc_0", "loop:bc_2", "bc_6"}, root.Children)
	assert.Equal(t, "bc_6", root.Exit)
	assert.Equal(t, []string{}, root.JumpTargets)
	assert.Empty(t, root.Parent)

	loop, ok := info.Block("loop:bc_2")
	require.True(t, ok)
	assert.Equal(t, BlockTypeLoop, loop.Type)
	assert.Equal(t, []string{"bc_2", "bc_4"}, loop.Children)
	assert.Equal(t, "tail:bc_0", loop.Parent)
	assert.Equal(t, 1, loop.Depth)
	assert.Equal(t, "bc_4", loop.Exit)

	latch, ok := info.Block("bc_4")
	require.True(t, ok)
	assert.Equal(t, BlockTypeBasic, latch.Type)
	assert.Equal(t, "loop:bc_2", latch.Parent)
	assert.Equal(t, 2, latch.Depth)
	assert.Equal(t, []string{"bc_6"}, latch.JumpTargets)
	assert.Equal(t, []string{"bc_2"}, latch.Backedges)

	assert.Equal(t, []CFGEdge{
		{SourceID: "bc_2", TargetID: "bc_4", EdgeType: EdgeTypeJump},
		{SourceID: "bc_4", TargetID: "bc_2", EdgeType: EdgeTypeBackEdge},
		{SourceID: "bc_0", TargetID: "loop:bc_2", EdgeType: EdgeTypeJump},
		{SourceID: "loop:bc_2", TargetID: "bc_6", EdgeType: EdgeTypeJump},
	}, info.Edges)

	assert.Equal(t, []string{"bc_0", "bc_2", "bc_4", "bc_6"}, info.Leaves())
	assert.Equal(t, "bc_0", info.EntryBlockID)
	assert.Equal(t, []string{"bc_6"}, info.ExitBlockIDs)
	assert.Equal(t, 2, info.CyclomaticComplexity)

	assert.Equal(t, Stats{
		Blocks:    6,
		Leaves:    4,
		Regions:   map[BlockType]int{BlockTypeTail: 1, BlockTypeLoop: 1},
		Edges:     3,
		Backedges: 1,
		MaxDepth:  2,
	}, info.Stats)
}

func TestExportSyntheticLeaf(t *testing.T) {
	m := scfg.NewBlockMap()
	m.AddNode(&scfg.BasicBlock{Begin: scfg.Offset(0), End: scfg.Offset(2), JumpTargets: []scfg.Label{scfg.Synthetic(0)}})
	m.AddNode(&scfg.BasicBlock{Begin: scfg.Synthetic(0), End: scfg.Synthetic(0)})

	info, err := Export("synthetic", m)
	require.NoError(t, err)

	assert.Equal(t, []string{"bc_0", "cl_0"}, info.RootIDs)
	assert.True(t, info.Blocks["cl_0"].Synthetic)
	assert.False(t, info.Blocks["bc_0"].Synthetic)
	assert.Equal(t, 1, info.Stats.SyntheticLeaves)
	assert.Equal(t, 1, info.CyclomaticComplexity)
}

func TestExportEmpty(t *testing.T) {
	info, err := Export("empty", scfg.NewBlockMap())
	require.NoError(t, err)
	assert.Empty(t, info.RootIDs)
	assert.Empty(t, info.EntryBlockID)
	assert.Equal(t, 0, info.CyclomaticComplexity)
}

func TestNewIDDisambiguates(t *testing.T) {
	e := &exporter{used: make(map[string]int)}
	assert.Equal(t, "head:bc_0", e.newID("head:bc_0"))
	assert.Equal(t, "head:bc_0#2", e.newID("head:bc_0"))
	assert.Equal(t, "head:bc_0#3", e.newID("head:bc_0"))
	assert.Equal(t, "tail:bc_0", e.newID("tail:bc_0"))
}

func TestExportRestructuredListing(t *testing.T) {
	table := bytecode.DefaultTable()
	instrs, err := bytecode.ParseListingFile(filepath.Join("..", "..", "testdata", "listings", "if_else.lst"), table)
	require.NoError(t, err)

	flow := scfg.FromInstructions(instrs, table)
	out, err := flow.Restructure(scfg.NewRestructurer())
	require.NoError(t, err)

	info, err := Export("if_else", out.Map)
	require.NoError(t, err)

	require.Len(t, info.RootIDs, 1)
	assert.True(t, info.Blocks[info.RootIDs[0]].Type.IsRegion())
	assert.Equal(t, "bc_0", info.EntryBlockID)
	assert.NotEmpty(t, info.ExitBlockIDs)
	assert.Equal(t, 2, info.CyclomaticComplexity)

	// every original block is a leaf of the export
	leaves := make(map[string]bool)
	for _, id := range info.Leaves() {
		leaves[id] = true
	}
	for _, l := range flow.Map.Labels() {
		assert.True(t, leaves[l.String()], "missing leaf %s", l)
	}
	assert.Equal(t, 1, info.Stats.Regions[BlockTypeHead])
	assert.Equal(t, 2, info.Stats.Regions[BlockTypeBranch])
}
