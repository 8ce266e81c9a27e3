package scfg

import (
	"github.com/oleiade/lane"
)

// Dominators computes the dominator set of every node of m. Nodes with no
// predecessor in m are entries and dominate only themselves. Self-edges
// are ignored.
func Dominators(m *BlockMap) (map[Label]LabelSet, error) {
	preds := m.Predecessors()
	succs := make(map[Label]LabelSet, m.Len())
	entries := NewLabelSet()
	for _, l := range m.Labels() {
		succs[l] = NewLabelSet(m.Successors(l)...)
		succs[l].Remove(l)
		preds[l].Remove(l)
		if preds[l].Len() == 0 {
			entries.Add(l)
		}
	}
	return findDominators(m.Labels(), entries, preds, succs)
}

// PostDominators computes the postdominator sets of m: dominators of the
// reversed graph, seeded with the nodes that have no successor in m.
func PostDominators(m *BlockMap) (map[Label]LabelSet, error) {
	preds := make(map[Label]LabelSet, m.Len())
	succs := m.Predecessors()
	entries := NewLabelSet()
	for _, l := range m.Labels() {
		preds[l] = NewLabelSet(m.Successors(l)...)
		preds[l].Remove(l)
		succs[l].Remove(l)
		if preds[l].Len() == 0 {
			entries.Add(l)
		}
	}
	return findDominators(m.Labels(), entries, preds, succs)
}

// findDominators is the iterative worklist formulation: every non-entry
// node starts dominated by all nodes and is tightened to itself plus the
// intersection over its predecessors until nothing shrinks.
func findDominators(nodes []Label, entries LabelSet, preds, succs map[Label]LabelSet) (map[Label]LabelSet, error) {
	if entries.Len() == 0 {
		return nil, ErrNoEntry
	}

	all := NewLabelSet(nodes...)
	doms := make(map[Label]LabelSet, len(nodes))
	todo := lane.NewStack()
	for _, n := range nodes {
		if entries.Has(n) {
			doms[n] = NewLabelSet(n)
		} else {
			doms[n] = all.Clone()
			todo.Push(n)
		}
	}

	for !todo.Empty() {
		n := todo.Pop().(Label)
		if entries.Has(n) {
			continue
		}

		var next LabelSet
		for _, p := range preds[n].Sorted() {
			if next == nil {
				next = doms[p].Clone()
			} else {
				next.Intersect(doms[p])
			}
		}
		if next == nil {
			next = NewLabelSet()
		}
		next.Add(n)

		if !next.Equal(doms[n]) {
			if next.Len() >= doms[n].Len() {
				return nil, invariantf("dominator set of %s grew from %d to %d", n, doms[n].Len(), next.Len())
			}
			doms[n] = next
			for _, s := range succs[n].Sorted() {
				todo.Push(s)
			}
		}
	}
	return doms, nil
}

// ImmediateDominators reduces dominator sets to immediate dominators.
// Nodes without a proper dominator (entries) are absent from the result.
// The immediate dominator of k is the strict dominator of k that every
// other strict dominator of k also dominates.
func ImmediateDominators(doms map[Label]LabelSet) (map[Label]Label, error) {
	strict := make(map[Label]LabelSet, len(doms))
	for k, v := range doms {
		s := v.Clone()
		s.Remove(k)
		strict[k] = s
	}

	idoms := make(map[Label]LabelSet, len(strict))
	for _, k := range sortedKeys(strict) {
		vs := strict[k].Clone()
		for _, v := range strict[k].Sorted() {
			if sv, ok := strict[v]; ok {
				vs.Subtract(sv)
			}
		}
		idoms[k] = vs
	}

	out := make(map[Label]Label, len(idoms))
	for k, vs := range idoms {
		switch vs.Len() {
		case 0:
		case 1:
			out[k], _ = vs.First()
		default:
			return nil, invariantf("%s has %d immediate dominators %s", k, vs.Len(), vs)
		}
	}
	return out, nil
}

func sortedKeys(m map[Label]LabelSet) []Label {
	out := make([]Label, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sortLabels(out)
	return out
}
