package scfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-scfg/pkg/bytecode"
)

func TestFlowInfoScenarioA(t *testing.T) {
	flow := loadListing(t, "scenario_a")
	m := flow.Map
	require.Equal(t, offsets(0, 4, 8, 12, 14, 18), m.Labels())

	tests := []struct {
		begin       int
		end         int
		targets     []Label
		ft          bool
	}{
		{0, 4, offsets(14, 4), false},
		{4, 8, offsets(12, 8), false},
		{8, 12, offsets(18), false},
		{12, 14, offsets(14), true},
		{14, 18, offsets(18), false},
		{18, 20, nil, false},
	}
	for _, tt := range tests {
		b := m.Graph[Offset(tt.begin)].Base()
		assert.Equal(t, Offset(tt.end), b.End, "end of %d", tt.begin)
		assert.Equal(t, tt.targets, b.JumpTargets, "targets of %d", tt.begin)
		assert.Equal(t, tt.ft, b.Fallthrough, "fallthrough of %d", tt.begin)
	}

	for _, scc := range m.ComputeSCC() {
		assert.Equal(t, 1, scc.Len(), "forward jumps only")
	}
}

func TestFlowInfoJumpInsts(t *testing.T) {
	table := bytecode.DefaultTable()
	instrs := []bytecode.Instruction{
		{Offset: 0, Opname: "LOAD_FAST"},
		{Offset: 2, Opname: "POP_JUMP_IF_FALSE", Target: 8},
		{Offset: 4, Opname: "JUMP_FORWARD", Target: 8},
		{Offset: 6, Opname: "LOAD_CONST"},
		{Offset: 8, Opname: "RETURN_VALUE", IsJumpTarget: true},
	}
	fi := NewFlowInfo(instrs, table)

	assert.Equal(t, offsets(8, 4), fi.JumpInsts[Offset(2)])
	assert.Equal(t, offsets(8), fi.JumpInsts[Offset(4)])
	assert.Equal(t, []Label{}, fi.JumpInsts[Offset(8)])
	assert.Equal(t, offsets(0, 4, 8), fi.BlockOffsets.Sorted())
	assert.Equal(t, 10, fi.EndOffset())

	// the instruction at 6 is unreachable and absorbed by block 4
	m := fi.BuildBasicBlocks()
	assert.Equal(t, offsets(0, 4, 8), m.Labels())
	assert.Equal(t, offsets(8), m.Graph[Offset(4)].Base().JumpTargets)
	assert.Equal(t, Offset(8), m.Graph[Offset(4)].Base().End)
}

func TestFlowInfoDeadCodeAfterJump(t *testing.T) {
	m := loadListing(t, "loop_break").Map
	assert.Equal(t, offsets(0, 2, 4, 8, 14, 16), m.Labels())
	b := m.Graph[Offset(8)].Base()
	assert.Equal(t, Offset(14), b.End)
	assert.Equal(t, offsets(2), b.JumpTargets)
	assert.False(t, b.Fallthrough)
}

func TestFlowInfoConditionalAtEnd(t *testing.T) {
	instrs := []bytecode.Instruction{
		{Offset: 0, Opname: "LOAD_FAST", IsJumpTarget: true},
		{Offset: 2, Opname: "POP_JUMP_IF_TRUE", Target: 0},
	}
	fi := NewFlowInfo(instrs, nil)
	assert.Equal(t, offsets(0, 4), fi.JumpInsts[Offset(2)])
	assert.Equal(t, 4, fi.EndOffset())

	m := fi.BuildBasicBlocks()
	assert.Equal(t, offsets(0, 4), m.Labels())
	empty := m.Graph[Offset(4)].Base()
	assert.Equal(t, Offset(6), empty.End)
	assert.True(t, empty.IsExiting())
	assert.False(t, empty.Fallthrough)
}

func TestFlowInfoEmpty(t *testing.T) {
	fi := NewFlowInfo(nil, nil)
	assert.Equal(t, 0, fi.EndOffset())
	assert.Equal(t, 0, fi.BuildBasicBlocks().Len())
}

func TestFlowInfoTableWidth(t *testing.T) {
	table, err := bytecode.NewTable("toy", 1, []string{"BR"}, []string{"JMP"}, []string{"RET"})
	require.NoError(t, err)
	instrs, err := bytecode.ParseListingFile("../../testdata/listings/toy.lst", table)
	require.NoError(t, err)

	m := FromInstructions(instrs, table).Map
	assert.Equal(t, offsets(0, 2, 4, 5), m.Labels())
	assert.Equal(t, offsets(4, 2), m.Graph[Offset(0)].Base().JumpTargets)
	assert.Equal(t, offsets(5), m.Graph[Offset(2)].Base().JumpTargets)
	assert.True(t, m.Graph[Offset(4)].Base().Fallthrough)
	assert.Equal(t, Offset(6), m.Graph[Offset(5)].Base().End)
}
