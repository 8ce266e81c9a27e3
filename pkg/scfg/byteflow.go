package scfg

import (
	"sort"

	"github.com/l3aro/go-scfg/pkg/bytecode"
)

// ByteFlow pairs an instruction stream with one stage of its graph. Every
// method returns a new ByteFlow and leaves the receiver untouched, so the
// stages of a run can be kept side by side.
type ByteFlow struct {
	Instructions []bytecode.Instruction
	Map          *BlockMap
}

// FromInstructions builds the initial, unstructured ByteFlow.
func FromInstructions(instrs []bytecode.Instruction, table *bytecode.Table) *ByteFlow {
	return &ByteFlow{
		Instructions: instrs,
		Map:          NewFlowInfo(instrs, table).BuildBasicBlocks(),
	}
}

func (bf *ByteFlow) with(m *BlockMap) *ByteFlow {
	return &ByteFlow{Instructions: bf.Instructions, Map: m}
}

func (bf *ByteFlow) JoinReturns(r *Restructurer) *ByteFlow {
	return bf.with(r.JoinReturns(bf.Map))
}

func (bf *ByteFlow) RestructureLoops(r *Restructurer) (*ByteFlow, error) {
	m, err := r.RestructureLoops(bf.Map)
	if err != nil {
		return nil, err
	}
	return bf.with(m), nil
}

func (bf *ByteFlow) RestructureBranches(r *Restructurer) (*ByteFlow, error) {
	m, err := r.RestructureBranches(bf.Map)
	if err != nil {
		return nil, err
	}
	return bf.with(m), nil
}

// Restructure runs the whole pipeline; see Restructurer.Restructure.
func (bf *ByteFlow) Restructure(r *Restructurer) (*ByteFlow, error) {
	m, err := r.Restructure(bf.Map)
	if err != nil {
		return nil, err
	}
	return bf.with(m), nil
}


// BlockInstructions returns the instructions covered by the leaf labelled
// l, wherever it is nested in the map. Synthetic leaves and unknown labels
// cover nothing.
func (bf *ByteFlow) BlockInstructions(l Label) []bytecode.Instruction {
	if l.IsSynthetic() {
		return nil
	}
	var leaf *BasicBlock
	_ = Walk(bf.Map, func(_ int, at Label, b Block) error {
		if basic, ok := b.(*BasicBlock); ok && at == l {
			leaf = basic
		}
		return nil
	})
	if leaf == nil || leaf.End.IsSynthetic() {
		return nil
	}

	ins := bf.Instructions
	i := sort.Search(len(ins), func(i int) bool { return ins[i].Offset >= leaf.Begin.Value })
	j := sort.Search(len(ins), func(j int) bool { return ins[j].Offset >= leaf.End.Value })
	if i >= j {
		return nil
	}
	return ins[i:j:j]
}
