package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/go-scfg/pkg/cfg"
	"github.com/l3aro/go-scfg/pkg/scfg"
)

// printCFGInfo prints a structured graph in human-readable format.
func printCFGInfo(w io.Writer, info *cfg.CFGInfo) {
	fmt.Fprintf(w, "=== Structured CFG: %s ===\n", info.Name)
	fmt.Fprintf(w, "Cyclomatic Complexity: %d\n", info.CyclomaticComplexity)
	fmt.Fprintf(w, "Entry Block: %s\n", info.EntryBlockID)
	fmt.Fprintf(w, "Exit Blocks: %v\n", info.ExitBlockIDs)
	fmt.Fprintf(w, "Leaves: %d (%d synthetic), max depth %d\n",
		info.Stats.Leaves, info.Stats.SyntheticLeaves, info.Stats.MaxDepth)
	if len(info.Stats.Regions) > 0 {
		fmt.Fprintf(w, "Regions:%s\n", formatRegionCounts(info.Stats.Regions))
	}

	fmt.Fprintf(w, "\nBlocks (%d):\n", len(info.Blocks))
	printTree(w, info, info.RootIDs, 1)
}

func printTree(w io.Writer, info *cfg.CFGInfo, ids []string, indent int) {
	pad := strings.Repeat("  ", indent)
	for _, id := range ids {
		b := info.Blocks[id]
		fmt.Fprintf(w, "%s%s\n", pad, formatBlock(b))
		if b.Type.IsRegion() {
			printTree(w, info, b.Children, indent+1)
		}
	}
}

func formatBlock(b cfg.CFGBlock) string {
	var sb strings.Builder
	if b.Type.IsRegion() {
		fmt.Fprintf(&sb, "%s [%s %s..%s]", b.ID, b.Type, b.Begin, b.End)
	} else {
		fmt.Fprintf(&sb, "%s [%s..%s]", b.ID, b.Begin, b.End)
	}
	if len(b.JumpTargets) == 0 {
		sb.WriteString(" exit")
	} else {
		fmt.Fprintf(&sb, " -> %s", strings.Join(b.JumpTargets, ", "))
	}
	if len(b.Backedges) > 0 {
		fmt.Fprintf(&sb, " back %s", strings.Join(b.Backedges, ", "))
	}
	if b.Exit != "" {
		fmt.Fprintf(&sb, " (exit %s)", b.Exit)
	}
	if b.Fallthrough {
		sb.WriteString(" fallthrough")
	}
	return sb.String()
}

// printBlockMap prints the top level of flow, one block per line, each
// basic block followed by its instructions.
func printBlockMap(w io.Writer, flow *scfg.ByteFlow) {
	m := flow.Map
	for _, l := range m.Labels() {
		b := m.Graph[l].Base()
		kind := "basic"
		if r, ok := m.Graph[l].(*scfg.RegionBlock); ok {
			kind = string(r.Kind)
		}
		targets := make([]string, len(b.JumpTargets))
		for i, t := range b.JumpTargets {
			targets[i] = t.String()
		}
		line := fmt.Sprintf("  %-6s %s..%s -> [%s]", kind, b.Begin, b.End, strings.Join(targets, " "))
		if b.Fallthrough {
			line += " fallthrough"
		}
		fmt.Fprintln(w, line)
		if _, ok := m.Graph[l].(*scfg.BasicBlock); ok {
			for _, ins := range flow.BlockInstructions(l) {
				fmt.Fprintf(w, "         %s\n", ins)
			}
		}
	}
}

func formatLabelSet(s scfg.LabelSet) string {
	parts := make([]string, 0, s.Len())
	for _, l := range s.Sorted() {
		parts = append(parts, l.String())
	}
	return strings.Join(parts, " ")
}
