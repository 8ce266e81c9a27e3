package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/internal/log"
	"github.com/l3aro/go-scfg/internal/scanner"
	"github.com/l3aro/go-scfg/pkg/bytecode"
	"github.com/l3aro/go-scfg/pkg/cache"
	"github.com/l3aro/go-scfg/pkg/cfg"
)

type batchOptions struct {
	Dir     string
	Stage   string
	Jobs    int
	JSON    bool
	NoCache bool
}

// batchResult is the outcome for one listing.
type batchResult struct {
	Path       string     `json:"path"`
	Error      string     `json:"error,omitempty"`
	Complexity int        `json:"cyclomatic_complexity,omitempty"`
	Stats      *cfg.Stats `json:"stats,omitempty"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Restructure every listing under a directory",
	Long: `Finds the listings (*.lst, *.dis) under a directory and restructures
them in parallel, printing one summary line per listing.

Hidden files and directories are skipped, as is anything matched by a
.scfgignore file (gitignore syntax). The command fails if any listing
cannot be restructured.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		opts := batchOptions{Dir: args[0]}
		opts.Stage, _ = cmd.Flags().GetString("stage")
		opts.Jobs, _ = cmd.Flags().GetInt("jobs")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.NoCache, _ = cmd.Flags().GetBool("no-cache")
		return runBatch(cmd.Context(), c, opts, newLogger(c), os.Stdout)
	},
}

func runBatch(ctx context.Context, c *config.Config, opts batchOptions, logger log.Logger, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !validStage(opts.Stage) {
		return fmt.Errorf("unknown stage %q (use one of %v)", opts.Stage, stages)
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	table, err := c.Table()
	if err != nil {
		return err
	}
	files, err := scanner.Scan(opts.Dir)
	if err != nil {
		return err
	}
	logger.Debug("found listings", "dir", opts.Dir, "count", len(files))

	var gc *cache.GraphCache
	if c.CacheEnabled && !opts.NoCache {
		gc = openGraphCache(c, logger)
		if gc != nil {
			defer closeGraphCache(gc, logger)
		}
	}

	results := make([]batchResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = batchOne(f, opts.Stage, c.Verify, table, gc, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printBatch(out, opts, results, failed)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d listings failed", failed, len(results))
	}
	return nil
}

func batchOne(f scanner.File, stage string, verify bool, table *bytecode.Table, gc *cache.GraphCache, logger log.Logger) batchResult {
	res := batchResult{Path: f.Path}
	logger = logger.With("listing", f.Path)
	lst, err := readListing(f.FullPath, nil, table)
	if err == nil {
		var info *cfg.CFGInfo
		info, err = restructureListing(lst, stage, verify, gc, logger)
		if err == nil {
			res.Complexity = info.CyclomaticComplexity
			res.Stats = &info.Stats
			return res
		}
	}
	logger.Warn("listing failed", "error", err)
	res.Error = err.Error()
	return res
}

func printBatch(w io.Writer, opts batchOptions, results []batchResult, failed int) {
	fmt.Fprintf(w, "=== Batch: %s (%d listings, stage %s) ===\n", opts.Dir, len(results), opts.Stage)
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "  FAIL  %s: %s\n", r.Path, r.Error)
			continue
		}
		fmt.Fprintf(w, "  ok    %s  leaves=%d depth=%d complexity=%d%s\n",
			r.Path, r.Stats.Leaves, r.Stats.MaxDepth, r.Complexity, formatRegionCounts(r.Stats.Regions))
	}
	fmt.Fprintf(w, "%d ok, %d failed\n", len(results)-failed, failed)
}

func formatRegionCounts(regions map[cfg.BlockType]int) string {
	if len(regions) == 0 {
		return ""
	}
	kinds := make([]string, 0, len(regions))
	for k := range regions {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	var sb strings.Builder
	for _, k := range kinds {
		fmt.Fprintf(&sb, " %s=%d", k, regions[cfg.BlockType(k)])
	}
	return sb.String()
}

func init() {
	batchCmd.Flags().String("stage", stageFinal, "Stop after this stage (closed, loops, branches, final)")
	batchCmd.Flags().IntP("jobs", "J", 0, "Listings restructured in parallel (default: number of CPUs)")
	batchCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	batchCmd.Flags().Bool("no-cache", false, "Bypass the graph cache")
	RootCmd.AddCommand(batchCmd)
}
