package scfg

import (
	"errors"
	"fmt"

	"github.com/l3aro/go-scfg/internal/log"
)

// Restructurer runs the restructuring passes. It carries the label
// generator shared by every pass so synthetic labels stay unique.
type Restructurer struct {
	gen    *LabelGenerator
	logger log.Logger
}

// Option configures a Restructurer.
type Option func(*Restructurer)

// WithGenerator makes the restructurer mint labels from gen.
func WithGenerator(gen *LabelGenerator) Option {
	return func(r *Restructurer) {
		r.gen = gen
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l log.Logger) Option {
	return func(r *Restructurer) {
		r.logger = l
	}
}

// NewRestructurer creates a restructurer with a fresh generator and the
// discarding logger unless options say otherwise.
func NewRestructurer(opts ...Option) *Restructurer {
	r := &Restructurer{}
	for _, opt := range opts {
		opt(r)
	}
	if r.gen == nil {
		r.gen = NewLabelGenerator()
	}
	if r.logger == nil {
		r.logger = log.Discard()
	}
	return r
}

// Generator returns the label generator in use.
func (r *Restructurer) Generator() *LabelGenerator {
	return r.gen
}

// JoinReturns returns a copy of m closed to a single terminating node.
func (r *Restructurer) JoinReturns(m *BlockMap) *BlockMap {
	out := m.Clone()
	if out.JoinReturns(r.gen) {
		r.logger.Debug("joined returns", "nodes", out.Len())
	}
	return out
}

// RestructureLoops returns a copy of m in which every loop is replaced by
// a loop region.
func (r *Restructurer) RestructureLoops(m *BlockMap) (*BlockMap, error) {
	out := m.Clone()
	if err := r.restructureLoops(out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// RestructureBranches returns a copy of m in which branch points are split
// into head, branch and tail regions.
func (r *Restructurer) RestructureBranches(m *BlockMap) (*BlockMap, error) {
	out := m.Clone()
	if err := r.restructureBranches(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Restructure closes m, extracts loops, then branches, and returns a map
// holding exactly one top-level region. m is not modified.
func (r *Restructurer) Restructure(m *BlockMap) (*BlockMap, error) {
	if m.Len() == 0 {
		return nil, ErrEmptyGraph
	}

	out := r.JoinReturns(m)
	if err := r.restructureLoops(out, nil); err != nil {
		return nil, fmt.Errorf("restructuring loops: %w", err)
	}
	if err := r.restructureBranches(out); err != nil {
		return nil, fmt.Errorf("restructuring branches: %w", err)
	}
	return r.wrapRoot(out)
}

// wrapRoot nests the top level into one tail region unless it already is
// a single region.
func (r *Restructurer) wrapRoot(m *BlockMap) (*BlockMap, error) {
	if m.Len() == 1 {
		for _, b := range m.Graph {
			if _, ok := b.(*RegionBlock); ok {
				return m, nil
			}
		}
	}

	entry, err := m.FindHead()
	if err != nil {
		var he *HeadError
		if !errors.As(err, &he) || len(he.Heads) == 0 {
			return nil, fmt.Errorf("wrapping root: %w", err)
		}
		// unreachable blocks are extra heads; the lowest label is the real entry
		entry = he.Heads[0]
		r.logger.Warn("top level has unreachable blocks", "heads", he.Heads)
	}
	preExits, postExits := m.FindExits(m.LabelSet())
	if postExits.Len() != 0 {
		return nil, invariantf("top level leaves the graph through %s", postExits)
	}

	root := &RegionBlock{
		BasicBlock: BasicBlock{
			Begin: entry,
			End:   entry,
		},
		Kind:      RegionTail,
		Subregion: m,
	}
	if exit, ok := preExits.First(); ok {
		root.End = exit
		if preExits.Len() == 1 {
			root.Exit = &exit
		}
	}

	out := NewBlockMap()
	out.AddNode(root)
	r.logger.Debug("wrapped root region", "entry", entry, "nodes", m.Len())
	return out, nil
}
