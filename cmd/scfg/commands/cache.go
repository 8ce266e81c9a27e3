package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/pkg/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the graph cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number and size of cached graphs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		return runCacheStats(c, os.Stdout)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		return runCacheClear(c, os.Stdout)
	},
}

func openCache(c *config.Config) (*cache.GraphCache, error) {
	if !c.CacheEnabled {
		return nil, fmt.Errorf("the graph cache is disabled (cache_enabled: false)")
	}
	return cache.NewGraphCache(cache.GraphCacheOptions{Dir: c.CacheDir, MaxGraphs: c.CacheSize})
}

func runCacheStats(c *config.Config, out io.Writer) error {
	gc, err := openCache(c)
	if err != nil {
		return err
	}
	defer gc.Close()

	s := gc.Stats()
	fmt.Fprintf(out, "Cache: %s\n", c.CacheDir)
	fmt.Fprintf(out, "  Graphs: %d\n", s.Length)
	fmt.Fprintf(out, "  Bytes: %d\n", s.CurrentBytes)
	return nil
}

func runCacheClear(c *config.Config, out io.Writer) error {
	gc, err := openCache(c)
	if err != nil {
		return err
	}
	n := gc.Len()
	gc.Clear()
	if err := gc.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d cached graphs from %s\n", n, c.CacheDir)
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	RootCmd.AddCommand(cacheCmd)
}
