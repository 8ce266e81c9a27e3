package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/pkg/scfg"
)

// domsCmd represents the doms command
var domsCmd = &cobra.Command{
	Use:   "doms <listing>",
	Short: "Show dominators or postdominators of a listing",
	Long: `Computes the dominator sets and immediate dominators of the basic
blocks of a listing. With --post, the graph is first closed to a single
exit and postdominators are shown instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		post, _ := cmd.Flags().GetBool("post")
		return runDoms(cfg, args[0], post, cmd.InOrStdin(), os.Stdout)
	},
}

func runDoms(c *config.Config, path string, post bool, stdin io.Reader, out io.Writer) error {
	table, err := c.Table()
	if err != nil {
		return err
	}
	lst, err := readListing(path, stdin, table)
	if err != nil {
		return err
	}

	m := lst.Flow.Map
	title := "Dominators"
	compute := scfg.Dominators
	if post {
		m = scfg.NewRestructurer(scfg.WithLogger(newLogger(c))).JoinReturns(m)
		title = "Postdominators"
		compute = scfg.PostDominators
	}

	doms, err := compute(m)
	if err != nil {
		return fmt.Errorf("computing %s: %w", title, err)
	}
	idoms, err := scfg.ImmediateDominators(doms)
	if err != nil {
		return fmt.Errorf("computing immediate %s: %w", title, err)
	}

	fmt.Fprintf(out, "=== %s: %s ===\n", title, lst.Name)
	for _, l := range m.Labels() {
		idom := "-"
		if d, ok := idoms[l]; ok {
			idom = d.String()
		}
		fmt.Fprintf(out, "  %-6s idom %-6s {%s}\n", l, idom, formatLabelSet(doms[l]))
	}
	return nil
}

func init() {
	domsCmd.Flags().Bool("post", false, "Show postdominators")
	RootCmd.AddCommand(domsCmd)
}
