package scfg

import (
	"sort"

	"github.com/l3aro/go-scfg/pkg/bytecode"
)

// FlowInfo is the result of one scan over an instruction stream: where
// basic blocks start and where each jump instruction may go.
type FlowInfo struct {
	// BlockOffsets holds the begin label of every basic block.
	BlockOffsets LabelSet
	// JumpInsts maps the offset of every jump or terminating instruction
	// to its targets. Terminators map to an empty slice.
	JumpInsts map[Label][]Label

	offsets    []int
	lastOffset int
	width      int
}

// NewFlowInfo scans instrs, classifying opnames through table. A nil
// table means bytecode.DefaultTable.
func NewFlowInfo(instrs []bytecode.Instruction, table *bytecode.Table) *FlowInfo {
	if table == nil {
		table = bytecode.DefaultTable()
	}
	fi := &FlowInfo{
		BlockOffsets: NewLabelSet(),
		JumpInsts:    make(map[Label][]Label),
		offsets:      make([]int, 0, len(instrs)),
		width:        table.Width,
	}
	if fi.width <= 0 {
		fi.width = bytecode.DefaultWidth
	}

	for i, ins := range instrs {
		fi.offsets = append(fi.offsets, ins.Offset)
		fi.lastOffset = ins.Offset
		if ins.Offset == 0 || i == 0 || ins.IsJumpTarget {
			fi.BlockOffsets.Add(Offset(ins.Offset))
		}

		switch table.Classify(ins.Opname) {
		case bytecode.KindConditionalJump:
			next := ins.Offset + fi.width
			if i+1 < len(instrs) {
				next = instrs[i+1].Offset
			}
			fi.addJump(ins.Offset, Offset(ins.Target), Offset(next))
		case bytecode.KindUnconditionalJump:
			fi.addJump(ins.Offset, Offset(ins.Target))
		case bytecode.KindTerminator:
			fi.addJump(ins.Offset)
		}
	}
	return fi
}

func (fi *FlowInfo) addJump(offset int, targets ...Label) {
	for _, t := range targets {
		fi.BlockOffsets.Add(t)
	}
	fi.JumpInsts[Offset(offset)] = append([]Label{}, targets...)
}

// EndOffset is the offset just past the last instruction.
func (fi *FlowInfo) EndOffset() int {
	if len(fi.offsets) == 0 {
		return 0
	}
	return fi.lastOffset + fi.width
}

// BuildBasicBlocks cuts the stream at the block offsets. Each block takes
// the targets of the first jump or terminator it contains; a block without
// one falls through to the next block. A block past the last instruction
// is empty and terminates.
func (fi *FlowInfo) BuildBasicBlocks() *BlockMap {
	m := NewBlockMap()
	if len(fi.offsets) == 0 {
		return m
	}

	begins := fi.BlockOffsets.Sorted()
	for i, begin := range begins {
		end := Offset(fi.EndOffset())
		if i+1 < len(begins) {
			end = begins[i+1]
		}

		b := &BasicBlock{Begin: begin, End: end}
		if begin.Value >= fi.EndOffset() {
			// fallthrough target of a conditional jump ending the stream
			b.End = Offset(begin.Value + fi.width)
		} else if targets, ok := fi.terminator(begin.Value, end.Value); ok {
			b.JumpTargets = targets
		} else {
			b.Fallthrough = true
			b.JumpTargets = []Label{end}
		}
		m.AddNode(b)
	}
	return m
}

// terminator finds the first jump or terminating instruction in
// [begin, end). Instructions after it in the block are unreachable.
func (fi *FlowInfo) terminator(begin, end int) ([]Label, bool) {
	i := sort.SearchInts(fi.offsets, begin)
	for ; i < len(fi.offsets) && fi.offsets[i] < end; i++ {
		if targets, ok := fi.JumpInsts[Offset(fi.offsets[i])]; ok {
			return append([]Label(nil), targets...), true
		}
	}
	return nil, false
}
