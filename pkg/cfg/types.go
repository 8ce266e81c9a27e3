// Package cfg defines a serialisable view of a structured control-flow
// graph, for renderers and code generators that do not want to depend on
// the restructuring internals.
package cfg

// BlockType represents the type of a CFG block.
type BlockType string

const (
	BlockTypeBasic  BlockType = "basic"  // Leaf covering an instruction range
	BlockTypeLoop   BlockType = "loop"   // Loop region
	BlockTypeHead   BlockType = "head"   // Head region ending in a branch point
	BlockTypeBranch BlockType = "branch" // One arm of a branch
	BlockTypeTail   BlockType = "tail"   // Region after the arms rejoin
)

// IsRegion reports whether blocks of this type nest other blocks.
func (t BlockType) IsRegion() bool {
	return t != BlockTypeBasic
}

// EdgeType represents the type of a CFG edge.
type EdgeType string

const (
	EdgeTypeJump     EdgeType = "jump"      // Jump target or fallthrough
	EdgeTypeBackEdge EdgeType = "back_edge" // Back edge to the enclosing loop header
)

// CFGBlock is one node of the structured graph. Regions list their
// children; leaves have none.
type CFGBlock struct {
	ID          string    `json:"id" msgpack:"id"`                                       // Unique identifier for the block
	Label       string    `json:"label" msgpack:"label"`                                 // Label the block is stored under
	Type        BlockType `json:"type" msgpack:"type"`                                   // basic or one of the region kinds
	Begin       string    `json:"begin" msgpack:"begin"`                                 // First label covered
	End         string    `json:"end" msgpack:"end"`                                     // End marker
	Fallthrough bool      `json:"fallthrough,omitempty" msgpack:"fallthrough,omitempty"` // Leaf without an explicit terminator
	Synthetic   bool      `json:"synthetic,omitempty" msgpack:"synthetic,omitempty"`     // Created during restructuring
	JumpTargets []string  `json:"jump_targets" msgpack:"jump_targets"`                   // Target labels, in order
	Backedges   []string  `json:"backedges,omitempty" msgpack:"backedges,omitempty"`     // Loop header labels
	Exit        string    `json:"exit,omitempty" msgpack:"exit,omitempty"`               // Exiting node of a region
	Parent      string    `json:"parent,omitempty" msgpack:"parent,omitempty"`           // ID of the enclosing region
	Children    []string  `json:"children,omitempty" msgpack:"children,omitempty"`       // IDs of nested blocks
	Depth       int       `json:"depth" msgpack:"depth"`                                 // Nesting depth, 0 at top level
}

// CFGEdge represents a directed edge between two CFG blocks at the same
// nesting level.
type CFGEdge struct {
	SourceID string   `json:"source_id" msgpack:"source_id"` // ID of the source block
	TargetID string   `json:"target_id" msgpack:"target_id"` // ID of the target block
	EdgeType EdgeType `json:"edge_type" msgpack:"edge_type"` // jump or back_edge
}

// Stats summarises a structured graph.
type Stats struct {
	Blocks          int               `json:"blocks" msgpack:"blocks"`
	Leaves          int               `json:"leaves" msgpack:"leaves"`
	SyntheticLeaves int               `json:"synthetic_leaves" msgpack:"synthetic_leaves"`
	Regions         map[BlockType]int `json:"regions" msgpack:"regions"`
	Edges           int               `json:"edges" msgpack:"edges"`
	Backedges       int               `json:"backedges" msgpack:"backedges"`
	MaxDepth        int               `json:"max_depth" msgpack:"max_depth"`
}

// CFGInfo represents a complete structured graph of one code object.
type CFGInfo struct {
	Name                 string              `json:"name" msgpack:"name"`                                   // Name of the code object or listing
	Blocks               map[string]CFGBlock `json:"blocks" msgpack:"blocks"`                               // Map of block ID to block
	Edges                []CFGEdge           `json:"edges" msgpack:"edges"`                                 // List of edges in the graph
	RootIDs              []string            `json:"root_ids" msgpack:"root_ids"`                           // IDs of the top-level blocks
	EntryBlockID         string              `json:"entry_block_id" msgpack:"entry_block_id"`               // ID of the first leaf
	ExitBlockIDs         []string            `json:"exit_block_ids" msgpack:"exit_block_ids"`               // IDs of leaves without targets
	CyclomaticComplexity int                 `json:"cyclomatic_complexity" msgpack:"cyclomatic_complexity"` // Computed on the leaf graph
	Stats                Stats               `json:"stats" msgpack:"stats"`
}

// Block returns the block with the given ID.
func (c *CFGInfo) Block(id string) (CFGBlock, bool) {
	b, ok := c.Blocks[id]
	return b, ok
}

// Leaves returns the IDs of all leaf blocks in depth-first order.
func (c *CFGInfo) Leaves() []string {
	var out []string
	var visit func(ids []string)
	visit = func(ids []string) {
		for _, id := range ids {
			b := c.Blocks[id]
			if b.Type.IsRegion() {
				visit(b.Children)
				continue
			}
			out = append(out, id)
		}
	}
	visit(c.RootIDs)
	return out
}
