package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SyntaxError occurs when an instruction listing cannot be parsed.
type SyntaxError struct {
	Line   int
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Reason)
}

// ParseListing reads a plain-text instruction listing.
//
// Each non-empty line holds one instruction:
//
//	[>>] OFFSET OPNAME [ARG]
//
// A leading ">>" marks a jump target, as in the output of Python's dis
// module. ARG is required for jump opcodes and holds the target offset;
// it is ignored for anything else. Text after '#' is a comment.
// Jump targets are marked on the returned instructions whether or not
// the listing carries ">>" markers.
func ParseListing(r io.Reader, table *Table) ([]Instruction, error) {
	var out []Instruction
	seen := make(map[int]bool)

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		text := sc.Text()
		line := text
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		ins := Instruction{}
		if fields[0] == ">>" {
			ins.IsJumpTarget = true
			fields = fields[1:]
		}
		if len(fields) < 2 {
			return nil, &SyntaxError{Line: n, Text: text, Reason: "expected offset and opname"}
		}

		off, err := strconv.Atoi(fields[0])
		if err != nil || off < 0 {
			return nil, &SyntaxError{Line: n, Text: text, Reason: fmt.Sprintf("invalid offset %q", fields[0])}
		}
		if len(out) > 0 && off <= out[len(out)-1].Offset {
			return nil, &SyntaxError{Line: n, Text: text, Reason: fmt.Sprintf("offset %d does not increase", off)}
		}
		ins.Offset = off
		ins.Opname = fields[1]

		if table.Classify(ins.Opname).IsJump() {
			if len(fields) < 3 {
				return nil, &SyntaxError{Line: n, Text: text, Reason: fmt.Sprintf("%s needs a target offset", ins.Opname)}
			}
			target, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, &SyntaxError{Line: n, Text: text, Reason: fmt.Sprintf("invalid target %q", fields[2])}
			}
			ins.Target = target
		}

		seen[off] = true
		out = append(out, ins)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading listing: %w", err)
	}

	for _, ins := range out {
		if table.Classify(ins.Opname).IsJump() && !seen[ins.Target] {
			return nil, &SyntaxError{
				Line:   0,
				Text:   ins.String(),
				Reason: fmt.Sprintf("jump at offset %d targets unknown offset %d", ins.Offset, ins.Target),
			}
		}
	}

	MarkJumpTargets(out, table)
	return out, nil
}

// ParseListingFile reads the listing stored at path.
func ParseListingFile(path string, table *Table) ([]Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open listing %s: %w", path, err)
	}
	defer f.Close()

	instrs, err := ParseListing(f, table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return instrs, nil
}

// MarkJumpTargets sets IsJumpTarget on every instruction some jump lands on.
func MarkJumpTargets(instrs []Instruction, table *Table) {
	targets := make(map[int]bool)
	for _, ins := range instrs {
		if table.Classify(ins.Opname).IsJump() {
			targets[ins.Target] = true
		}
	}
	for i := range instrs {
		if targets[instrs[i].Offset] {
			instrs[i].IsJumpTarget = true
		}
	}
}
