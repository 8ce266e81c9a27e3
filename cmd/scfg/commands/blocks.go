package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/pkg/cfg"
)

// blocksCmd represents the blocks command
var blocksCmd = &cobra.Command{
	Use:   "blocks <listing>",
	Short: "Show the basic blocks of a listing",
	Long: `Cuts a listing into basic blocks at jump targets and after
conditional jumps, and prints each block with its jump targets
and the instructions it covers.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runBlocks(cfg, args[0], jsonOutput, cmd.InOrStdin(), os.Stdout)
	},
}

func runBlocks(c *config.Config, path string, jsonOutput bool, stdin io.Reader, out io.Writer) error {
	table, err := c.Table()
	if err != nil {
		return err
	}
	lst, err := readListing(path, stdin, table)
	if err != nil {
		return err
	}

	if jsonOutput {
		info, err := cfg.Export(lst.Name, lst.Flow.Map)
		if err != nil {
			return fmt.Errorf("exporting blocks: %w", err)
		}
		return info.WriteJSON(out)
	}

	fmt.Fprintf(out, "=== Basic blocks: %s (%s, %d instructions) ===\n", lst.Name, table.Name, len(lst.Flow.Instructions))
	printBlockMap(out, lst.Flow)
	return nil
}

func init() {
	blocksCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(blocksCmd)
}
