package scfg

import (
	"sort"

	"github.com/oleiade/lane"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// BlockMap is a control-flow graph: blocks keyed by their begin label.
// Edges are the jump targets of the blocks; targets that are not keys of
// the map lead out of this nesting level and are ignored by graph queries.
type BlockMap struct {
	Graph map[Label]Block
}

// NewBlockMap returns an empty map.
func NewBlockMap() *BlockMap {
	return &BlockMap{Graph: make(map[Label]Block)}
}

// AddNode inserts b under its begin label, replacing any previous node.
func (m *BlockMap) AddNode(b Block) {
	m.Graph[b.Base().Begin] = b
}

func (m *BlockMap) Get(l Label) (Block, bool) {
	b, ok := m.Graph[l]
	return b, ok
}

func (m *BlockMap) Has(l Label) bool {
	_, ok := m.Graph[l]
	return ok
}

func (m *BlockMap) Len() int {
	return len(m.Graph)
}

// Labels returns the keys in label order.
func (m *BlockMap) Labels() []Label {
	out := make([]Label, 0, len(m.Graph))
	for l := range m.Graph {
		out = append(out, l)
	}
	sortLabels(out)
	return out
}

// LabelSet returns the keys as a set.
func (m *BlockMap) LabelSet() LabelSet {
	s := make(LabelSet, len(m.Graph))
	for l := range m.Graph {
		s.Add(l)
	}
	return s
}

// Clone returns a deep copy; nested subregions are copied too.
func (m *BlockMap) Clone() *BlockMap {
	c := &BlockMap{Graph: make(map[Label]Block, len(m.Graph))}
	for l, b := range m.Graph {
		c.Graph[l] = cloneBlock(b)
	}
	return c
}

func (m *BlockMap) pop(l Label) Block {
	b := m.Graph[l]
	delete(m.Graph, l)
	return b
}

func (m *BlockMap) setTargets(l Label, targets []Label) {
	m.Graph[l] = withJumpTargets(m.Graph[l], targets)
}

// ExcludeNodes returns the labels not in exclude, in label order.
func (m *BlockMap) ExcludeNodes(exclude LabelSet) []Label {
	var out []Label
	for _, l := range m.Labels() {
		if !exclude.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// Successors returns the distinct jump targets of l that are in the map.
func (m *BlockMap) Successors(l Label) []Label {
	b, ok := m.Graph[l]
	if !ok {
		return nil
	}
	var out []Label
	for _, t := range b.Base().JumpTargets {
		if m.Has(t) && !containsLabel(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Predecessors returns, for every node, the nodes of the map jumping to it.
func (m *BlockMap) Predecessors() map[Label]LabelSet {
	preds := make(map[Label]LabelSet, len(m.Graph))
	for l := range m.Graph {
		preds[l] = NewLabelSet()
	}
	for src := range m.Graph {
		for _, dst := range m.Successors(src) {
			preds[dst].Add(src)
		}
	}
	return preds
}

// FindHead returns the only node that no other node of the map jumps to.
func (m *BlockMap) FindHead() (Label, error) {
	heads := m.LabelSet()
	for l, b := range m.Graph {
		for _, t := range b.Base().JumpTargets {
			if t != l {
				heads.Remove(t)
			}
		}
	}
	if heads.Len() != 1 {
		return Label{}, &HeadError{Heads: heads.Sorted()}
	}
	h, _ := heads.First()
	return h, nil
}

// ComputeSCC returns the strongly connected components of the jump-target
// relation restricted to the map. Components are ordered by their
// smallest label. Any component with two or more nodes is a loop.
func (m *BlockMap) ComputeSCC() []LabelSet {
	labels := m.Labels()
	ids := make(map[Label]int64, len(labels))
	g := simple.NewDirectedGraph()
	for i, l := range labels {
		ids[l] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for _, l := range labels {
		for _, t := range m.Successors(l) {
			if t == l {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(ids[l]), simple.Node(ids[t])))
		}
	}

	var out []LabelSet
	for _, comp := range topo.TarjanSCC(g) {
		s := NewLabelSet()
		for _, n := range comp {
			s.Add(labels[n.ID()])
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i].First()
		b, _ := out[j].First()
		return a.Less(b)
	})
	return out
}

// FindHeadersAndEntries finds the headers of subset, the nodes inside it
// with an incoming edge from outside, and the entries, the outside nodes
// supplying those edges.
func (m *BlockMap) FindHeadersAndEntries(subset LabelSet) (headers, entries LabelSet) {
	return m.findHeadersAndEntries(subset, nil)
}

// findHeadersAndEntries also considers edges from the nodes of outer,
// which sit one nesting level above the map.
func (m *BlockMap) findHeadersAndEntries(subset LabelSet, outer map[Label]Block) (headers, entries LabelSet) {
	headers, entries = NewLabelSet(), NewLabelSet()
	visit := func(l Label, b Block) {
		for _, t := range b.Base().JumpTargets {
			if subset.Has(t) {
				headers.Add(t)
				entries.Add(l)
			}
		}
	}
	for _, l := range m.ExcludeNodes(subset) {
		visit(l, m.Graph[l])
	}
	for l, b := range outer {
		if !subset.Has(l) {
			visit(l, b)
		}
	}
	return headers, entries
}

// FindExits finds the pre-exits of subset, the nodes inside it with an
// edge leaving it or with no edge at all, and the post-exits, the targets
// of those leaving edges.
func (m *BlockMap) FindExits(subset LabelSet) (preExits, postExits LabelSet) {
	preExits, postExits = NewLabelSet(), NewLabelSet()
	for _, l := range subset.Sorted() {
		b, ok := m.Graph[l]
		if !ok {
			continue
		}
		base := b.Base()
		for _, t := range base.JumpTargets {
			if !subset.Has(t) {
				preExits.Add(l)
				postExits.Add(t)
			}
		}
		if base.IsExiting() {
			preExits.Add(l)
		}
	}
	return preExits, postExits
}

func (m *BlockMap) newSyntheticBlock(gen *LabelGenerator, ft bool, targets ...Label) *BasicBlock {
	b := &BasicBlock{
		Begin:       gen.Next(),
		End:         gen.Next(),
		Fallthrough: ft,
		JumpTargets: targets,
	}
	m.AddNode(b)
	return b
}

// JoinReturns closes the graph: when more than one node has no jump
// target, a new terminating node is added and every former terminating
// node jumps to it. It reports whether the map changed.
func (m *BlockMap) JoinReturns(gen *LabelGenerator) bool {
	var returns []Label
	for _, l := range m.Labels() {
		if m.Graph[l].Base().IsExiting() {
			returns = append(returns, l)
		}
	}
	if len(returns) <= 1 {
		return false
	}

	solo := m.newSyntheticBlock(gen, false)
	for _, l := range returns {
		m.setTargets(l, []Label{solo.Begin})
	}
	return true
}

// JoinExits routes every edge from subset to one of exits through a new
// pre-exit node, added to subset, which jumps to a new post-exit node
// fanning out to exits. It returns the pre-exit and post-exit labels.
func (m *BlockMap) JoinExits(subset LabelSet, exits LabelSet, gen *LabelGenerator) (Label, Label) {
	preLabel := gen.Next()
	postLabel := gen.Next()
	post := &BasicBlock{
		Begin:       postLabel,
		End:         gen.Next(),
		JumpTargets: exits.Sorted(),
	}
	pre := &BasicBlock{
		Begin:       preLabel,
		End:         gen.Next(),
		JumpTargets: []Label{postLabel},
	}

	members := subset.Sorted()
	m.AddNode(pre)
	m.AddNode(post)
	subset.Add(preLabel)

	for _, l := range members {
		targets := m.Graph[l].Base().JumpTargets
		for _, t := range targets {
			if exits.Has(t) {
				m.setTargets(l, retarget(targets, exits, preLabel))
				break
			}
		}
	}
	return preLabel, postLabel
}

// JoinPreExits routes the edges from every node of exits to postExit
// through one new pre-exit node, which is added to subset.
func (m *BlockMap) JoinPreExits(exits LabelSet, postExit Label, subset LabelSet, gen *LabelGenerator) Label {
	pre := m.newSyntheticBlock(gen, false, postExit)
	subset.Add(pre.Begin)

	to := NewLabelSet(postExit)
	for _, l := range exits.Sorted() {
		m.setTargets(l, retarget(m.Graph[l].Base().JumpTargets, to, pre.Begin))
	}
	return pre.Begin
}

// JoinHeaders adds one node fanning out to headers and makes every entry
// jump to it instead of to a header. It returns the new node's label.
func (m *BlockMap) JoinHeaders(headers, entries LabelSet, gen *LabelGenerator) Label {
	synth := m.newSyntheticBlock(gen, false, headers.Sorted()...)
	for _, l := range entries.Sorted() {
		m.setTargets(l, retarget(m.Graph[l].Base().JumpTargets, headers, synth.Begin))
	}
	return synth.Begin
}

// IsReachable reports whether end can be reached from begin by following
// at least one jump-target edge.
func (m *BlockMap) IsReachable(begin, end Label) bool {
	b, ok := m.Graph[begin]
	if !ok {
		return false
	}

	seen := NewLabelSet()
	st := lane.NewStack()
	for _, t := range b.Base().JumpTargets {
		st.Push(t)
	}

	for !st.Empty() {
		l := st.Pop().(Label)
		if l == end {
			return true
		}
		if seen.Has(l) {
			continue
		}
		seen.Add(l)
		if nb, ok := m.Graph[l]; ok {
			for _, t := range nb.Base().JumpTargets {
				st.Push(t)
			}
		}
	}
	return false
}
