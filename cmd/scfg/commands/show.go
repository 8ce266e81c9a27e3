package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-scfg/pkg/cfg"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <graph>",
	Short: "Print a previously exported graph",
	Long: `Reads a graph written by "scfg restructure --out" (msgpack) or
"scfg restructure --json" (files ending in .json) and prints it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runShow(args[0], jsonOutput, os.Stdout)
	},
}

func runShow(path string, jsonOutput bool, out io.Writer) error {
	info, err := readGraph(path)
	if err != nil {
		return err
	}
	if jsonOutput {
		return info.WriteJSON(out)
	}
	printCFGInfo(out, info)
	return nil
}

func readGraph(path string) (*cfg.CFGInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return cfg.ReadJSON(bytes.NewReader(data))
	}
	return cfg.Unmarshal(data)
}

func init() {
	showCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(showCmd)
}
