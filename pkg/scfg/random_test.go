package scfg

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-scfg/pkg/bytecode"
)

// programGen emits random structured programs as CPython-style wordcode:
// sequences of plain statements, if and if/else, while loops, and guarded
// break or return. Break and return only ever end a guarded arm, so every
// generated block is reachable.
type programGen struct {
	rng    *rand.Rand
	instrs []bytecode.Instruction
	breaks [][]int
}

func (g *programGen) next() int {
	return len(g.instrs) * 2
}

func (g *programGen) emit(op string) int {
	g.instrs = append(g.instrs, bytecode.Instruction{Offset: g.next(), Opname: op})
	return len(g.instrs) - 1
}

func (g *programGen) patch(i, target int) {
	g.instrs[i].Target = target
}

func (g *programGen) body(depth int) {
	for n := 1 + g.rng.Intn(3); n > 0; n-- {
		g.stmt(depth)
	}
}

func (g *programGen) stmt(depth int) {
	r := g.rng.Intn(10)
	switch {
	case depth >= 3 || r < 3:
		g.emit("LOAD_FAST")
	case r < 5:
		g.emit("LOAD_FAST")
		cond := g.emit("POP_JUMP_IF_FALSE")
		g.body(depth + 1)
		skip := g.emit("JUMP_FORWARD")
		g.patch(cond, g.next())
		g.body(depth + 1)
		g.patch(skip, g.next())
	case r < 7:
		g.emit("LOAD_FAST")
		cond := g.emit("POP_JUMP_IF_FALSE")
		switch k := g.rng.Intn(3); {
		case k == 0 && len(g.breaks) > 0:
			j := g.emit("JUMP_ABSOLUTE")
			top := len(g.breaks) - 1
			g.breaks[top] = append(g.breaks[top], j)
		case k == 1:
			g.emit("LOAD_CONST")
			g.emit("RETURN_VALUE")
		default:
			g.body(depth + 1)
		}
		g.patch(cond, g.next())
	default:
		top := g.next()
		g.emit("LOAD_FAST")
		cond := g.emit("POP_JUMP_IF_FALSE")
		g.breaks = append(g.breaks, nil)
		g.body(depth + 1)
		back := g.emit("JUMP_ABSOLUTE")
		g.patch(back, top)
		end := g.next()
		g.patch(cond, end)
		for _, j := range g.breaks[len(g.breaks)-1] {
			g.patch(j, end)
		}
		g.breaks = g.breaks[:len(g.breaks)-1]
	}
}

func randomProgram(seed int64) *ByteFlow {
	g := &programGen{rng: rand.New(rand.NewSource(seed))}
	g.body(0)
	g.emit("LOAD_CONST")
	g.emit("RETURN_VALUE")

	table := bytecode.DefaultTable()
	bytecode.MarkJumpTargets(g.instrs, table)
	return FromInstructions(g.instrs, table)
}

// relabel renames every offset label of m through a random permutation
// of the same number of offsets. Edges are preserved.
func relabel(m *BlockMap, rng *rand.Rand) *BlockMap {
	labels := m.Labels()
	perm := rng.Perm(len(labels))
	names := make(map[Label]Label, len(labels))
	for i, l := range labels {
		names[l] = Offset(perm[i] * 2)
	}

	out := NewBlockMap()
	for _, l := range labels {
		b := m.Graph[l].Base()
		targets := make([]Label, 0, len(b.JumpTargets))
		for _, t := range b.JumpTargets {
			targets = append(targets, names[t])
		}
		begin := names[l]
		out.AddNode(&BasicBlock{
			Begin:       begin,
			End:         Offset(begin.Value + 1),
			Fallthrough: b.Fallthrough,
			JumpTargets: targets,
		})
	}
	return out
}

func checkGraph(t *testing.T, m *BlockMap) {
	t.Helper()
	if _, err := m.FindHead(); err == nil {
		assertGonumDominators(t, m)
	}

	out, err := NewRestructurer().Restructure(m)
	require.NoError(t, err, dump(m))
	require.NoError(t, Verify(out, m.Labels()), dump(out))
}

func TestRestructureRandomPrograms(t *testing.T) {
	const programs = 200
	for seed := int64(1); seed <= programs; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			flow := randomProgram(seed)
			checkGraph(t, flow.Map)

			rng := rand.New(rand.NewSource(seed))
			if _, err := flow.Map.FindHead(); err == nil {
				checkGraph(t, relabel(flow.Map, rng))
			}
		})
	}
}

func TestRestructureRelabelledGraphs(t *testing.T) {
	tests := []struct {
		name string
		m    *BlockMap
	}{
		{"reverse_labelled_chain", mapOf(bb(6, 4), bb(4, 0), bb(0, 2), bb(2))},
		{"reverse_labelled_diamond", mapOf(bb(6, 2, 4), bb(2, 0), bb(4, 0), bb(0))},
		{"loop_entered_from_above", mapOf(bb(8, 2), bb(2, 4), bb(4, 2, 0), bb(0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkGraph(t, tt.m)
		})
	}

	rng := rand.New(rand.NewSource(7))
	for _, name := range listings {
		if entryless[name] {
			continue
		}
		m := loadListing(t, name).Map
		for i := 0; i < 5; i++ {
			t.Run(fmt.Sprintf("%s_%d", name, i), func(t *testing.T) {
				checkGraph(t, relabel(m, rng))
			})
		}
	}
}
