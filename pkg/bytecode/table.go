package bytecode

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultWidth is the instruction width used when a table does not set one.
const DefaultWidth = 2

// Table maps opnames of one instruction set to their control-flow Kind.
// Opnames that are not listed classify as KindOther.
type Table struct {
	Name          string   `yaml:"name"`
	Width         int      `yaml:"width"`         // Size of the last instruction, used for the end sentinel
	Conditional   []string `yaml:"conditional"`   // Conditional jump opnames
	Unconditional []string `yaml:"unconditional"` // Unconditional jump opnames
	Terminating   []string `yaml:"terminating"`   // Opnames that leave the code object

	kinds map[string]Kind
}

// NewTable builds a table from the three opname groups.
func NewTable(name string, width int, conditional, unconditional, terminating []string) (*Table, error) {
	t := &Table{
		Name:          name,
		Width:         width,
		Conditional:   conditional,
		Unconditional: unconditional,
		Terminating:   terminating,
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultTable returns the built-in table for CPython wordcode.
func DefaultTable() *Table {
	t, err := NewTable("cpython", DefaultWidth,
		[]string{"FOR_ITER", "POP_JUMP_IF_FALSE", "POP_JUMP_IF_TRUE", "JUMP_IF_FALSE_OR_POP", "JUMP_IF_TRUE_OR_POP"},
		[]string{"JUMP_ABSOLUTE", "JUMP_FORWARD"},
		[]string{"RETURN_VALUE", "RAISE_VARARGS"},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTable decodes a YAML table definition.
func ParseTable(data []byte) (*Table, error) {
	t := &Table{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse opcode table: %w", err)
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTable reads a YAML table definition from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read opcode table %s: %w", path, err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Marshal encodes the table back to YAML.
func (t *Table) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

func (t *Table) index() error {
	if t.Width == 0 {
		t.Width = DefaultWidth
	}
	if t.Width < 0 {
		return fmt.Errorf("opcode table %q: invalid width %d", t.Name, t.Width)
	}

	t.kinds = make(map[string]Kind)
	groups := []struct {
		kind Kind
		ops  []string
	}{
		{KindConditionalJump, t.Conditional},
		{KindUnconditionalJump, t.Unconditional},
		{KindTerminator, t.Terminating},
	}
	for _, g := range groups {
		for _, op := range g.ops {
			if prev, ok := t.kinds[op]; ok && prev != g.kind {
				return fmt.Errorf("opcode table %q: %s listed as both %s and %s", t.Name, op, prev, g.kind)
			}
			t.kinds[op] = g.kind
		}
	}
	return nil
}

// Classify returns the Kind of an opname.
func (t *Table) Classify(opname string) Kind {
	if t.kinds == nil {
		// tables built as literals are indexed lazily
		if err := t.index(); err != nil {
			return KindOther
		}
	}
	return t.kinds[opname]
}

// Opnames returns every classified opname, sorted.
func (t *Table) Opnames() []string {
	if t.kinds == nil {
		_ = t.index()
	}
	out := make([]string, 0, len(t.kinds))
	for op := range t.kinds {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}
