// Package bytecode defines the boundary between an instruction decoder and
// the control-flow restructuring code. It provides the decoded instruction
// type, an opcode classification table that can be swapped per instruction
// set, and a parser for plain-text instruction listings.
package bytecode

import "fmt"

// Kind classifies an opcode by its effect on control flow.
type Kind int

const (
	KindOther             Kind = iota // No control transfer; execution falls through
	KindConditionalJump               // Jumps to Target or falls through to the next instruction
	KindUnconditionalJump             // Always jumps to Target
	KindTerminator                    // Leaves the code object (return, raise)
)

func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindConditionalJump:
		return "conditional"
	case KindUnconditionalJump:
		return "unconditional"
	case KindTerminator:
		return "terminator"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsJump reports whether the kind carries a jump target.
func (k Kind) IsJump() bool {
	return k == KindConditionalJump || k == KindUnconditionalJump
}

// Instruction is a single decoded instruction.
type Instruction struct {
	Offset       int    `json:"offset" yaml:"offset" msgpack:"offset"`                         // Position in the instruction stream
	Opname       string `json:"opname" yaml:"opname" msgpack:"opname"`                         // Mnemonic, classified through a Table
	Target       int    `json:"target,omitempty" yaml:"target,omitempty" msgpack:"target"`     // Resolved jump target offset (jumps only)
	IsJumpTarget bool   `json:"is_jump_target" yaml:"is_jump_target" msgpack:"is_jump_target"` // Some jump lands on this instruction
}

func (ins Instruction) String() string {
	marker := "  "
	if ins.IsJumpTarget {
		marker = ">>"
	}
	return fmt.Sprintf("%s %4d %s", marker, ins.Offset, ins.Opname)
}
