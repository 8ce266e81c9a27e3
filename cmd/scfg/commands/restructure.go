package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/internal/log"
	"github.com/l3aro/go-scfg/pkg/cache"
	"github.com/l3aro/go-scfg/pkg/cfg"
	"github.com/l3aro/go-scfg/pkg/scfg"
)

// Restructuring stages, each including the ones before it.
const (
	stageClosed   = "closed"
	stageLoops    = "loops"
	stageBranches = "branches"
	stageFinal    = "final"
)

var stages = []string{stageClosed, stageLoops, stageBranches, stageFinal}

type restructureOptions struct {
	Path    string
	Stage   string
	JSON    bool
	Out     string
	NoCache bool
}

// restructureCmd represents the restructure command
var restructureCmd = &cobra.Command{
	Use:   "restructure <listing>",
	Short: "Restructure a listing into nested regions",
	Long: `Restructures the control flow of a listing and prints the nested regions.

Stages:
  closed    Single exit node added where needed
  loops     Loops replaced by loop regions
  branches  Branch points split into head, branch and tail regions
  final     Wrapped into one root region and verified (default)

Results are cached by listing content, opcode table and stage unless the
cache is disabled or --no-cache is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		opts := restructureOptions{Path: args[0]}
		opts.Stage, _ = cmd.Flags().GetString("stage")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Out, _ = cmd.Flags().GetString("out")
		opts.NoCache, _ = cmd.Flags().GetBool("no-cache")
		return runRestructure(c, opts, newLogger(c), cmd.InOrStdin(), os.Stdout)
	},
}

func runRestructure(c *config.Config, opts restructureOptions, logger log.Logger, stdin io.Reader, out io.Writer) error {
	if !validStage(opts.Stage) {
		return fmt.Errorf("unknown stage %q (use one of %v)", opts.Stage, stages)
	}
	table, err := c.Table()
	if err != nil {
		return err
	}
	lst, err := readListing(opts.Path, stdin, table)
	if err != nil {
		return err
	}

	var gc *cache.GraphCache
	if c.CacheEnabled && !opts.NoCache {
		gc = openGraphCache(c, logger)
		if gc != nil {
			defer closeGraphCache(gc, logger)
		}
	}

	info, err := restructureListing(lst, opts.Stage, c.Verify, gc, logger)
	if err != nil {
		return err
	}

	if opts.Out != "" {
		data, err := info.Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Out, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", opts.Out, err)
		}
		logger.Info("graph written", "path", opts.Out, "blocks", len(info.Blocks))
	}

	if opts.JSON {
		return info.WriteJSON(out)
	}
	printCFGInfo(out, info)
	return nil
}

// openGraphCache opens the configured graph cache. A cache that cannot
// be loaded is reported and skipped.
func openGraphCache(c *config.Config, logger log.Logger) *cache.GraphCache {
	gc, err := cache.NewGraphCache(cache.GraphCacheOptions{Dir: c.CacheDir, MaxGraphs: c.CacheSize})
	if err != nil {
		logger.Warn("graph cache unavailable", "dir", c.CacheDir, "error", err)
		return nil
	}
	return gc
}

func closeGraphCache(gc *cache.GraphCache, logger log.Logger) {
	if err := gc.Close(); err != nil {
		logger.Warn("failed to persist graph cache", "error", err)
	}
}

// restructureListing returns the exported graph of lst at stage, from gc
// when it holds one. gc may be nil.
func restructureListing(lst *listing, stage string, verify bool, gc *cache.GraphCache, logger log.Logger) (*cfg.CFGInfo, error) {
	key, err := cacheKey(lst, stage, verify)
	if err != nil {
		return nil, err
	}
	if gc != nil {
		cached, found, err := gc.Get(key)
		if err != nil {
			logger.Warn("dropped corrupt cache entry", "error", err)
		}
		if found {
			logger.Debug("cache hit", "listing", lst.Name, "stage", stage)
			cached.Name = lst.Name
			return cached, nil
		}
	}

	m, err := runStage(lst, stage, verify, logger)
	if err != nil {
		return nil, err
	}
	info, err := cfg.Export(lst.Name, m)
	if err != nil {
		return nil, fmt.Errorf("exporting graph: %w", err)
	}
	if gc != nil {
		if err := gc.Put(key, info); err != nil {
			logger.Warn("failed to cache graph", "error", err)
		}
	}
	return info, nil
}

// cacheKey covers everything the exported graph depends on: the listing,
// the full opcode classification and the stage. Verified results are
// keyed apart from unverified ones.
func cacheKey(lst *listing, stage string, verify bool) (string, error) {
	table, err := lst.Table.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding opcode table: %w", err)
	}
	if verify && stage == stageFinal {
		stage += "+verify"
	}
	return cache.Key(lst.Data, table, stage), nil
}

// runStage restructures lst up to and including stage.
func runStage(lst *listing, stage string, verify bool, logger log.Logger) (*scfg.BlockMap, error) {
	r := scfg.NewRestructurer(scfg.WithLogger(logger))
	flow := lst.Flow

	if stage == stageFinal {
		res, err := flow.Restructure(r)
		if err != nil {
			return nil, err
		}
		if verify {
			if err := scfg.Verify(res.Map, flow.Map.Labels()); err != nil {
				return nil, err
			}
			logger.Debug("verified", "listing", lst.Name, "blocks", flow.Map.Len())
		}
		return res.Map, nil
	}

	if flow.Map.Len() == 0 {
		return nil, scfg.ErrEmptyGraph
	}
	res := flow.JoinReturns(r)
	if stage == stageClosed {
		return res.Map, nil
	}
	res, err := res.RestructureLoops(r)
	if err != nil {
		return nil, err
	}
	if stage == stageLoops {
		return res.Map, nil
	}
	res, err = res.RestructureBranches(r)
	if err != nil {
		return nil, err
	}
	return res.Map, nil
}

func validStage(s string) bool {
	for _, st := range stages {
		if s == st {
			return true
		}
	}
	return false
}

func init() {
	restructureCmd.Flags().String("stage", stageFinal, "Stop after this stage (closed, loops, branches, final)")
	restructureCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	restructureCmd.Flags().StringP("out", "o", "", "Also write the graph to this file (msgpack)")
	restructureCmd.Flags().Bool("no-cache", false, "Bypass the graph cache")
	RootCmd.AddCommand(restructureCmd)
}
