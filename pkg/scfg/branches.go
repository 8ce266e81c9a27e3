package scfg

import (
	"fmt"

	"github.com/oleiade/lane"
)

// branchPoint is a node with two or more successors whose immediate
// postdominator is immediately dominated by the node itself.
type branchPoint struct {
	begin Label
	end   Label
}

// restructureBranches splits m, and then every region it produces, into
// head, branch and tail regions. Levels are processed breadth first from
// a work queue so no map is mutated while an outer level still walks it.
func (r *Restructurer) restructureBranches(m *BlockMap) error {
	queue := lane.NewQueue()
	queue.Enqueue(m)
	for !queue.Empty() {
		level := queue.Dequeue().(*BlockMap)
		subregions, err := r.branchLevel(level)
		if err != nil {
			return err
		}
		for _, sub := range subregions {
			queue.Enqueue(sub)
		}
	}
	return nil
}

// findBranchPoints indexes the branch points of m by their begin label.
func findBranchPoints(m *BlockMap, idoms, ipdoms map[Label]Label) map[Label]branchPoint {
	out := make(map[Label]branchPoint)
	for _, l := range m.Labels() {
		succs := m.Successors(l)
		if len(succs) < 2 || containsLabel(succs, l) {
			continue
		}
		end, ok := ipdoms[l]
		if !ok {
			continue
		}
		if d, ok := idoms[end]; ok && d == l {
			out[l] = branchPoint{begin: l, end: end}
		}
	}
	return out
}

type dominance struct {
	doms   map[Label]LabelSet
	idoms  map[Label]Label
	ipdoms map[Label]Label
}

func computeDominance(m *BlockMap) (*dominance, error) {
	doms, err := Dominators(m)
	if err != nil {
		return nil, fmt.Errorf("dominators: %w", err)
	}
	postdoms, err := PostDominators(m)
	if err != nil {
		return nil, fmt.Errorf("postdominators: %w", err)
	}
	idoms, err := ImmediateDominators(doms)
	if err != nil {
		return nil, err
	}
	ipdoms, err := ImmediateDominators(postdoms)
	if err != nil {
		return nil, err
	}
	return &dominance{doms: doms, idoms: idoms, ipdoms: ipdoms}, nil
}

// branchLevel extracts the first branch point on the path from the head
// of m. It returns the subregions that need the same treatment.
func (r *Restructurer) branchLevel(m *BlockMap) ([]*BlockMap, error) {
	if m.Len() < 2 {
		return nil, nil
	}

	dom, err := computeDominance(m)
	if err != nil {
		return nil, err
	}
	points := findBranchPoints(m, dom.idoms, dom.ipdoms)
	if len(points) == 0 {
		return nil, nil
	}

	head, err := m.FindHead()
	if err != nil {
		return nil, err
	}
	chain, bp, ok := headChain(m, head, points)
	if !ok {
		r.logger.Debug("no branch point on the head chain", "head", head, "chain", chain)
		return nil, nil
	}
	r.logger.Debug("branch region", "begin", bp.begin, "end", bp.end)

	if r.fillEmptyArms(m, bp.begin) {
		if dom, err = computeDominance(m); err != nil {
			return nil, err
		}
	}

	r.extractHead(m, bp.begin, chain)

	arms := partitionArms(m, bp, dom.doms)
	tail := NewLabelSet(m.ExcludeNodes(NewLabelSet(bp.begin))...)
	for _, arm := range arms {
		tail.Subtract(arm.nodes)
	}

	var subregions []*BlockMap
	if tail.Len() > 0 {
		sub := r.extractTail(m, tail)
		subregions = append(subregions, sub)
	}

	for _, arm := range arms {
		if arm.nodes.Len() == 0 {
			continue
		}
		sub, err := r.extractArm(m, arm.start, arm.nodes, bp.end)
		if err != nil {
			return nil, err
		}
		subregions = append(subregions, sub)
	}
	return subregions, nil
}

// headChain walks single-successor edges from head. It stops at the first
// node with more than one successor and reports whether that node is a
// branch point.
func headChain(m *BlockMap, head Label, points map[Label]branchPoint) ([]Label, branchPoint, bool) {
	var chain []Label
	seen := NewLabelSet()
	cur := head
	for !seen.Has(cur) {
		seen.Add(cur)
		chain = append(chain, cur)
		if bp, ok := points[cur]; ok {
			return chain, bp, true
		}
		succs := m.Successors(cur)
		if len(succs) != 1 {
			break
		}
		cur = succs[0]
	}
	return chain, branchPoint{}, false
}

// fillEmptyArms gives every target of begin that is reachable from
// another target its own filler node, so each arm has at least one node
// of its own. It reports whether any target changed.
func (r *Restructurer) fillEmptyArms(m *BlockMap, begin Label) bool {
	targets := m.Graph[begin].Base().JumpTargets
	next := make([]Label, 0, len(targets))
	changed := false
	for _, b := range targets {
		filled := false
		for _, a := range targets {
			if a == b || !m.Has(a) {
				continue
			}
			if m.IsReachable(a, b) {
				filled = true
				break
			}
		}
		if !filled {
			next = append(next, b)
			continue
		}
		filler := m.newSyntheticBlock(r.gen, true, b)
		r.logger.Debug("filled empty arm", "begin", begin, "target", b, "filler", filler.Begin)
		next = append(next, filler.Begin)
		changed = true
	}
	if changed {
		m.setTargets(begin, next)
	}
	return changed
}

// extractHead moves the chain ending in begin into a head region stored
// under begin.
func (r *Restructurer) extractHead(m *BlockMap, begin Label, chain []Label) {
	last := m.Graph[begin].Base()
	sub := NewBlockMap()
	for _, l := range chain {
		sub.AddNode(m.pop(l))
	}
	exit := begin
	m.AddNode(&RegionBlock{
		BasicBlock: BasicBlock{
			Begin:       begin,
			End:         last.End,
			JumpTargets: append([]Label(nil), last.JumpTargets...),
		},
		Kind:      RegionHead,
		Subregion: sub,
		Exit:      &exit,
	})
}

type arm struct {
	start Label
	nodes LabelSet
}

// partitionArms assigns to the arm starting at each target of bp.begin the
// nodes dominated by that target and not by bp.end.
func partitionArms(m *BlockMap, bp branchPoint, doms map[Label]LabelSet) []arm {
	var arms []arm
	for _, t := range m.Graph[bp.begin].Base().JumpTargets {
		nodes := NewLabelSet()
		for _, k := range m.Labels() {
			if k == bp.begin {
				continue
			}
			d := doms[k]
			if d.Has(t) && !d.Has(bp.end) {
				nodes.Add(k)
			}
		}
		arms = append(arms, arm{start: t, nodes: nodes})
	}
	return arms
}

// extractTail moves tail into a tail region. Several headers are first
// unified behind one synthetic entry.
func (r *Restructurer) extractTail(m *BlockMap, tail LabelSet) *BlockMap {
	headers, entries := m.FindHeadersAndEntries(tail)
	var entry Label
	switch headers.Len() {
	case 0:
		entry, _ = tail.First()
	case 1:
		entry, _ = headers.First()
	default:
		entry = m.JoinHeaders(headers, entries, r.gen)
		tail.Add(entry)
		r.logger.Debug("joined tail headers", "headers", headers, "entry", entry)
	}

	preExits, postExits := m.FindExits(tail)
	region := &RegionBlock{
		BasicBlock: BasicBlock{
			Begin:       entry,
			End:         entry,
			JumpTargets: postExits.Sorted(),
		},
		Kind:      RegionTail,
		Subregion: NewBlockMap(),
	}
	if exit, ok := preExits.First(); ok {
		region.End = exit
		if preExits.Len() == 1 {
			region.Exit = &exit
		}
	}
	for _, l := range tail.Sorted() {
		region.Subregion.AddNode(m.pop(l))
	}
	m.AddNode(region)
	r.logger.Debug("tail region", "entry", entry, "nodes", tail, "exits", preExits)
	return region.Subregion
}

// extractArm moves nodes into a branch region with one pre-exit and one
// post-exit, joining exits as needed.
func (r *Restructurer) extractArm(m *BlockMap, start Label, nodes LabelSet, end Label) (*BlockMap, error) {
	preExits, postExits := m.FindExits(nodes)

	var preExit, postExit Label
	switch {
	case preExits.Len() == 1 && postExits.Len() == 1:
		preExit, _ = preExits.First()
		postExit, _ = postExits.First()
	case postExits.Len() == 1:
		postExit, _ = postExits.First()
		preExit = m.JoinPreExits(preExits, postExit, nodes, r.gen)
	case postExits.Len() > 1:
		preExit, postExit = m.JoinExits(nodes, postExits, r.gen)
	default:
		return nil, invariantf("branch arm %s of %s has pre-exits %s and post-exits %s",
			start, end, preExits, postExits)
	}

	region := &RegionBlock{
		BasicBlock: BasicBlock{
			Begin:       start,
			End:         postExit,
			JumpTargets: []Label{postExit},
		},
		Kind:      RegionBranch,
		Subregion: NewBlockMap(),
		Exit:      &preExit,
	}
	for _, l := range nodes.Sorted() {
		region.Subregion.AddNode(m.pop(l))
	}
	m.AddNode(region)
	r.logger.Debug("branch arm", "start", start, "nodes", nodes, "pre", preExit, "post", postExit)
	return region.Subregion, nil
}
