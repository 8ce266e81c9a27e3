package scfg

import "fmt"

// RegionKind is the role of a region in the structured graph.
type RegionKind string

const (
	RegionLoop   RegionKind = "loop"   // Strongly connected component with one header
	RegionHead   RegionKind = "head"   // Straight-line chain ending in a branch point
	RegionBranch RegionKind = "branch" // One arm of a branch point
	RegionTail   RegionKind = "tail"   // Everything after the arms rejoin
)

// Block is a node of a BlockMap: either a *BasicBlock or a *RegionBlock.
// The set of implementations is closed.
type Block interface {
	// Base returns the begin/end/targets shape shared by both kinds.
	Base() *BasicBlock
	block()
}

// BasicBlock is a leaf node covering a straight-line instruction range.
type BasicBlock struct {
	Begin       Label   // First instruction, inclusive
	End         Label   // Next block's begin or a synthetic boundary, exclusive
	Fallthrough bool    // No explicit terminator; control falls to End
	JumpTargets []Label // 0: terminating, 1: jump or fallthrough, 2+: conditional or synthetic fan-out
	Backedges   []Label // Former jump targets recognised as the enclosing loop header
}

func (b *BasicBlock) Base() *BasicBlock { return b }
func (b *BasicBlock) block()            {}

// IsExiting reports whether the block has no jump targets.
func (b *BasicBlock) IsExiting() bool {
	return len(b.JumpTargets) == 0
}

func (b *BasicBlock) String() string {
	return fmt.Sprintf("BasicBlock(%s..%s -> %v)", b.Begin, b.End, b.JumpTargets)
}

func (b *BasicBlock) copyShape() BasicBlock {
	return BasicBlock{
		Begin:       b.Begin,
		End:         b.End,
		Fallthrough: b.Fallthrough,
		JumpTargets: append([]Label(nil), b.JumpTargets...),
		Backedges:   append([]Label(nil), b.Backedges...),
	}
}

// RegionBlock is a composite node wrapping a nested graph.
type RegionBlock struct {
	BasicBlock
	Kind RegionKind

	// Headers holds the region's entry nodes, kept outside Subregion.
	// Only loop regions populate it; the other kinds keep their entry
	// inside Subregion so it can be restructured further.
	Headers map[Label]Block

	// Subregion is the body of the region, excluding Headers.
	Subregion *BlockMap

	// Exit names the node whose edges leave the region; nil when there is
	// no single such node.
	Exit *Label
}

func (r *RegionBlock) Base() *BasicBlock { return &r.BasicBlock }

func (r *RegionBlock) String() string {
	return fmt.Sprintf("RegionBlock(%s %s -> %v, %d nodes)", r.Kind, r.Begin, r.JumpTargets, r.Subregion.Len()+len(r.Headers))
}

// FullGraph returns the headers and the subregion merged into one map.
// Blocks are shared with the region, the map itself is new.
func (r *RegionBlock) FullGraph() *BlockMap {
	m := NewBlockMap()
	if r.Subregion != nil {
		for l, b := range r.Subregion.Graph {
			m.Graph[l] = b
		}
	}
	for l, b := range r.Headers {
		m.Graph[l] = b
	}
	return m
}

// cloneBlock deep-copies b, including nested subregions.
func cloneBlock(b Block) Block {
	switch v := b.(type) {
	case *BasicBlock:
		c := v.copyShape()
		return &c
	case *RegionBlock:
		c := &RegionBlock{
			BasicBlock: v.BasicBlock.copyShape(),
			Kind:       v.Kind,
		}
		if v.Headers != nil {
			c.Headers = make(map[Label]Block, len(v.Headers))
			for l, h := range v.Headers {
				c.Headers[l] = cloneBlock(h)
			}
		}
		if v.Subregion != nil {
			c.Subregion = v.Subregion.Clone()
		}
		if v.Exit != nil {
			e := *v.Exit
			c.Exit = &e
		}
		return c
	default:
		panic(fmt.Sprintf("scfg: unknown block type %T", b))
	}
}

// withJumpTargets returns a copy of b with its jump targets replaced.
// Nested subregions stay shared with b.
func withJumpTargets(b Block, targets []Label) Block {
	switch v := b.(type) {
	case *BasicBlock:
		c := *v
		c.JumpTargets = append([]Label(nil), targets...)
		return &c
	case *RegionBlock:
		c := *v
		c.JumpTargets = append([]Label(nil), targets...)
		return &c
	default:
		panic(fmt.Sprintf("scfg: unknown block type %T", b))
	}
}

// withBackedge moves head from the jump targets of b to its backedges.
// b is returned unchanged when it does not jump to head.
func withBackedge(b Block, head Label) Block {
	base := b.Base()
	if !containsLabel(base.JumpTargets, head) {
		return b
	}
	targets := make([]Label, 0, len(base.JumpTargets))
	for _, t := range base.JumpTargets {
		if t != head {
			targets = append(targets, t)
		}
	}
	c := withJumpTargets(b, targets)
	cb := c.Base()
	if !containsLabel(cb.Backedges, head) {
		cb.Backedges = append(append([]Label(nil), cb.Backedges...), head)
	}
	return c
}

// retarget replaces every target in from by to, keeping the position of
// the first replaced target. to appears at most once in the result.
func retarget(targets []Label, from LabelSet, to Label) []Label {
	out := make([]Label, 0, len(targets))
	placed := false
	for _, t := range targets {
		if from.Has(t) {
			if placed {
				continue
			}
			t, placed = to, true
		}
		if t == to && containsLabel(out, to) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func containsLabel(ls []Label, l Label) bool {
	for _, x := range ls {
		if x == l {
			return true
		}
	}
	return false
}
