package cfg

import (
	"fmt"

	"github.com/l3aro/go-scfg/pkg/scfg"
)

type exporter struct {
	info   *CFGInfo
	leaves map[scfg.Label]string
	used   map[string]int
}

// Export converts a block map into a CFGInfo. Leaves get their label as
// ID; regions get "<kind>:<label>" since a region shares its label with
// the entry block it contains.
func Export(name string, m *scfg.BlockMap) (*CFGInfo, error) {
	e := &exporter{
		info: &CFGInfo{
			Name:   name,
			Blocks: make(map[string]CFGBlock),
			Stats:  Stats{Regions: make(map[BlockType]int)},
		},
		leaves: make(map[scfg.Label]string),
		used:   make(map[string]int),
	}

	roots, err := e.level(m, "", 0)
	if err != nil {
		return nil, err
	}
	e.info.RootIDs = roots
	e.finish()
	return e.info, nil
}

func (e *exporter) newID(base string) string {
	n := e.used[base]
	e.used[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s#%d", base, n+1)
}

func labelStrings(ls []scfg.Label) []string {
	if len(ls) == 0 {
		return nil
	}
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.String()
	}
	return out
}

// level exports the nodes of one map and the edges between them. It
// returns their IDs in label order.
func (e *exporter) level(m *scfg.BlockMap, parent string, depth int) ([]string, error) {
	ids := make(map[scfg.Label]string, m.Len())
	var out []string
	for _, l := range m.Labels() {
		id, err := e.node(l, m.Graph[l], parent, depth)
		if err != nil {
			return nil, err
		}
		ids[l] = id
		out = append(out, id)
	}

	for _, l := range m.Labels() {
		base := m.Graph[l].Base()
		for _, t := range base.JumpTargets {
			if dst, ok := ids[t]; ok {
				e.info.Edges = append(e.info.Edges, CFGEdge{SourceID: ids[l], TargetID: dst, EdgeType: EdgeTypeJump})
			}
		}
		for _, t := range base.Backedges {
			if dst, ok := ids[t]; ok {
				e.info.Edges = append(e.info.Edges, CFGEdge{SourceID: ids[l], TargetID: dst, EdgeType: EdgeTypeBackEdge})
			}
		}
	}
	return out, nil
}

func (e *exporter) node(l scfg.Label, b scfg.Block, parent string, depth int) (string, error) {
	base := b.Base()
	blk := CFGBlock{
		Label:       l.String(),
		Begin:       base.Begin.String(),
		End:         base.End.String(),
		Fallthrough: base.Fallthrough,
		JumpTargets: labelStrings(base.JumpTargets),
		Backedges:   labelStrings(base.Backedges),
		Parent:      parent,
		Depth:       depth,
	}
	if blk.JumpTargets == nil {
		blk.JumpTargets = []string{}
	}
	if depth > e.info.Stats.MaxDepth {
		e.info.Stats.MaxDepth = depth
	}

	switch v := b.(type) {
	case *scfg.BasicBlock:
		blk.Type = BlockTypeBasic
		blk.Synthetic = l.IsSynthetic()
		blk.ID = e.newID(l.String())
		e.leaves[l] = blk.ID
	case *scfg.RegionBlock:
		blk.Type = BlockType(v.Kind)
		blk.ID = e.newID(string(v.Kind) + ":" + l.String())
		if v.Exit != nil {
			blk.Exit = v.Exit.String()
		}
		children, err := e.level(v.FullGraph(), blk.ID, depth+1)
		if err != nil {
			return "", err
		}
		blk.Children = children
	default:
		return "", fmt.Errorf("unexpected block type %T at %s", b, l)
	}

	e.info.Blocks[blk.ID] = blk
	return blk.ID, nil
}

// finish fills the entry, exits, complexity and stats from the leaves.
func (e *exporter) finish() {
	info := e.info
	leafIDs := info.Leaves()

	var edges int
	for _, id := range leafIDs {
		b := info.Blocks[id]
		if len(b.JumpTargets) == 0 {
			info.ExitBlockIDs = append(info.ExitBlockIDs, id)
		}
		for _, t := range append(append([]string(nil), b.JumpTargets...), b.Backedges...) {
			l, err := scfg.ParseLabel(t)
			if err != nil {
				continue
			}
			if _, ok := e.leaves[l]; ok {
				edges++
			}
		}
	}
	if len(leafIDs) > 0 {
		info.EntryBlockID = leafIDs[0]
		info.CyclomaticComplexity = edges - len(leafIDs) + 2
		if info.CyclomaticComplexity < 1 {
			info.CyclomaticComplexity = 1
		}
	}

	info.Stats.Blocks = len(info.Blocks)
	info.Stats.Leaves = len(leafIDs)
	for _, b := range info.Blocks {
		switch {
		case b.Type.IsRegion():
			info.Stats.Regions[b.Type]++
		case b.Synthetic:
			info.Stats.SyntheticLeaves++
		}
	}
	for _, edge := range info.Edges {
		if edge.EdgeType == EdgeTypeBackEdge {
			info.Stats.Backedges++
		} else {
			info.Stats.Edges++
		}
	}
}
