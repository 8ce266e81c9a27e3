package scfg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestructureLoopsBackwardJump(t *testing.T) {
	flow := loadListing(t, "loop")
	out, err := flow.RestructureLoops(NewRestructurer())
	require.NoError(t, err)

	loops := regions(out.Map, RegionLoop)
	require.Len(t, loops, 1, dump(out.Map))
	loop := region(t, out.Map, Offset(4))
	assert.Equal(t, RegionLoop, loop.Kind)
	assert.Equal(t, offsets(8), loop.JumpTargets)
	assert.Equal(t, Offset(8), loop.End)
	require.NotNil(t, loop.Exit)
	assert.Equal(t, Offset(4), *loop.Exit)

	require.Contains(t, loop.Headers, Offset(4))
	assert.Equal(t, offsets(12), loop.Subregion.Labels())

	latch := loop.Subregion.Graph[Offset(12)].Base()
	assert.Equal(t, offsets(4), latch.Backedges)
	assert.NotContains(t, latch.JumpTargets, Offset(4))
	assert.Empty(t, latch.JumpTargets)

	assert.Equal(t, offsets(0, 4, 8, 18), out.Map.Labels())
	assert.Equal(t, 5, flow.Map.Len(), "input is not modified")
}

func TestRestructureLoopsMultipleHeaders(t *testing.T) {
	flow := loadListing(t, "scenario_b")
	_, err := flow.RestructureLoops(NewRestructurer())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))

	var le *LoopError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, offsets(4, 12, 14), le.Nodes)
	assert.Equal(t, offsets(4, 14), le.Headers)
}

func TestRestructureLoopsWhile(t *testing.T) {
	out, err := loadListing(t, "while_loop").RestructureLoops(NewRestructurer())
	require.NoError(t, err)

	loop := region(t, out.Map, Offset(4))
	assert.Equal(t, offsets(14), loop.JumpTargets)
	assert.Equal(t, offsets(6, 10), loop.Subregion.Labels())
	assert.Equal(t, offsets(10), loop.Subregion.Graph[Offset(6)].Base().JumpTargets)
	assert.Equal(t, offsets(4), loop.Subregion.Graph[Offset(6)].Base().Backedges)
	assert.Equal(t, offsets(4), loop.Subregion.Graph[Offset(10)].Base().Backedges)
	assert.Equal(t, offsets(14, 6), loop.Headers[Offset(4)].Base().JumpTargets)
}

func TestRestructureLoopsNested(t *testing.T) {
	out, err := loadListing(t, "nested_loop").RestructureLoops(NewRestructurer())
	require.NoError(t, err)

	outer := region(t, out.Map, Offset(2))
	assert.Equal(t, offsets(20), outer.JumpTargets)
	assert.Equal(t, offsets(4, 6, 16), outer.Subregion.Labels())
	assert.Equal(t, offsets(2), outer.Subregion.Graph[Offset(16)].Base().Backedges)

	inner := region(t, outer.Subregion, Offset(6))
	assert.Equal(t, offsets(16), inner.JumpTargets)
	assert.Equal(t, offsets(8, 12), inner.Subregion.Labels())
	assert.Equal(t, offsets(12), inner.Subregion.Graph[Offset(8)].Base().JumpTargets)
	assert.Equal(t, offsets(6), inner.Subregion.Graph[Offset(8)].Base().Backedges)
	assert.Equal(t, offsets(6), inner.Subregion.Graph[Offset(12)].Base().Backedges)

	assert.Len(t, regions(out.Map, RegionLoop), 2)
}

func TestRestructureLoopsJoinsExits(t *testing.T) {
	r := NewRestructurer()
	out, err := loadListing(t, "loop_break").RestructureLoops(r)
	require.NoError(t, err)

	pre, post := Synthetic(0), Synthetic(1)
	loop := region(t, out.Map, Offset(2))
	assert.Equal(t, []Label{post}, loop.JumpTargets)
	require.NotNil(t, loop.Exit)
	assert.Equal(t, pre, *loop.Exit)
	assert.Equal(t, []Label{Offset(4), Offset(8), pre}, loop.Subregion.Labels())
	assert.Equal(t, []Label{pre, Offset(4)}, loop.Headers[Offset(2)].Base().JumpTargets)
	assert.Equal(t, []Label{pre, Offset(8)}, loop.Subregion.Graph[Offset(4)].Base().JumpTargets)

	require.True(t, out.Map.Has(post))
	assert.Equal(t, offsets(14, 16), out.Map.Graph[post].Base().JumpTargets)
	assert.Equal(t, 4, r.Generator().Count())
}

func TestRestructureLoopsOuterHeaderEntry(t *testing.T) {
	// Body of a loop headed by 0 whose inner loop {2, 4} is only entered
	// from the header itself.
	header := map[Label]Block{Offset(0): bb(0, 2, 8)}
	body := mapOf(bb(2, 4), bb(4, 2, 6), bb(6))

	r := NewRestructurer()
	require.NoError(t, r.restructureLoops(body, header))
	inner := region(t, body, Offset(2))
	assert.Equal(t, offsets(6), inner.JumpTargets)

	body = mapOf(bb(2, 4), bb(4, 2, 6), bb(6))
	err := r.restructureLoops(body, nil)
	var le *LoopError
	require.True(t, errors.As(err, &le))
	assert.Empty(t, le.Headers)
}

func TestRestructureLoopsAmbiguousExit(t *testing.T) {
	// both 2 and 4 leave the loop for 6
	m := mapOf(bb(0, 2), bb(2, 4, 6), bb(4, 2, 6), bb(6))
	_, err := NewRestructurer().RestructureLoops(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
}

func TestRestructureLoopsSelfLoop(t *testing.T) {
	m := mapOf(bb(0, 2), bb(2, 2, 4), bb(4))
	out, err := NewRestructurer().RestructureLoops(m)
	require.NoError(t, err)
	assert.Empty(t, regions(out, RegionLoop))
	assert.Equal(t, m, out)
}

func TestRestructureLoopsHeaderAtEntry(t *testing.T) {
	flow := loadListing(t, "while_at_entry")
	out, err := flow.RestructureLoops(NewRestructurer())
	require.NoError(t, err)

	assert.Equal(t, offsets(0, 8), out.Map.Labels())
	loop := region(t, out.Map, Offset(0))
	assert.Equal(t, RegionLoop, loop.Kind)
	require.Contains(t, loop.Headers, Offset(0))
	assert.Equal(t, offsets(4), loop.Subregion.Labels())
	assert.Equal(t, offsets(0), loop.Subregion.Graph[Offset(4)].Base().Backedges)
	assert.Equal(t, offsets(8), loop.JumpTargets)
	require.NotNil(t, loop.Exit)
	assert.Equal(t, Offset(0), *loop.Exit)

	final, err := flow.Restructure(NewRestructurer())
	require.NoError(t, err)
	require.NoError(t, Verify(final.Map, flow.Map.Labels()), dump(final.Map))
	root := region(t, final.Map, Offset(0))
	assert.Equal(t, RegionTail, root.Kind)
	assert.Equal(t, RegionLoop, region(t, root.Subregion, Offset(0)).Kind)
}

func TestRestructureLoopsUnreachableCycle(t *testing.T) {
	// 4 <-> 6 is never entered and does not hold the lowest label
	_, err := NewRestructurer().RestructureLoops(mapOf(bb(0, 2), bb(2), bb(4, 6), bb(6, 4)))
	var le *LoopError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, offsets(4, 6), le.Nodes)
	assert.Empty(t, le.Headers)
}
