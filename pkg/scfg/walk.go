package scfg

import "errors"

// SkipRegion can be returned by a WalkFunc to skip the contents of the
// region it was called for.
var SkipRegion = errors.New("skip region")

// WalkFunc is called for every node visited by Walk. depth is 0 for the
// nodes of the map passed to Walk.
type WalkFunc func(depth int, l Label, b Block) error

// Walk visits the nodes of m in label order, depth first, descending into
// the full graph of every region after visiting the region itself.
func Walk(m *BlockMap, fn WalkFunc) error {
	return walk(m, 0, fn)
}

func walk(m *BlockMap, depth int, fn WalkFunc) error {
	for _, l := range m.Labels() {
		b := m.Graph[l]
		err := fn(depth, l, b)
		if errors.Is(err, SkipRegion) {
			continue
		}
		if err != nil {
			return err
		}

		switch v := b.(type) {
		case *BasicBlock:
		case *RegionBlock:
			if err := walk(v.FullGraph(), depth+1, fn); err != nil {
				return err
			}
		default:
			return invariantf("unknown block type %T at %s", b, l)
		}
	}
	return nil
}
