// Package commands provides the CLI commands for the scfg tool.
package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/internal/log"
	"github.com/l3aro/go-scfg/pkg/bytecode"
	"github.com/l3aro/go-scfg/pkg/scfg"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "scfg",
	Short: "scfg - Structured control flow for bytecode",
	Long: `scfg turns the jump-based control flow of a bytecode listing into
nested loop, head, branch and tail regions.

Commands:
  blocks       Show the basic blocks of a listing
  doms         Show dominators or postdominators of a listing
  restructure  Restructure a listing and print or export the result
  show         Print a previously exported graph
  batch        Restructure every listing under a directory
  cache        Inspect or clear the graph cache
  init         Create a configuration file interactively
  doctor       Check the configuration

Listings hold one instruction per line, "[>>] OFFSET OPNAME [TARGET]",
as printed by Python's dis module. Use "-" to read from stdin.

Use "scfg [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

var (
	configFlag   string
	verboseFlag  bool
	jsonLogsFlag bool
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file path (default: ./.scfg/config.yaml, then ~/.scfg/config.yaml)")
	RootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogsFlag, "json-logs", false, "Write logs as JSON")
}

// loadConfig loads the config named by --config, or the layered config
// otherwise, and applies the logging flags.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFromFile(configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verboseFlag {
		cfg.Verbose = true
	}
	if jsonLogsFlag {
		cfg.JSONLogs = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) log.Logger {
	return log.New(log.LoggerConfig{
		Level:      cfg.Level(),
		JSONOutput: cfg.JSONLogs,
		Output:     os.Stderr,
	})
}

// listing is a parsed instruction listing together with its raw bytes,
// which key the graph cache.
type listing struct {
	Name  string
	Data  []byte
	Table *bytecode.Table
	Flow  *scfg.ByteFlow
}

// readListing reads and parses the listing at path; "-" reads stdin.
func readListing(path string, stdin io.Reader, table *bytecode.Table) (*listing, error) {
	var (
		data []byte
		err  error
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
		name = "stdin"
	} else {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("stat file: %w", statErr)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("path is a directory, expected a file: %s", path)
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading listing: %w", err)
	}

	instrs, err := bytecode.ParseListing(bytes.NewReader(data), table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &listing{
		Name:  name,
		Data:  data,
		Table: table,
		Flow:  scfg.FromInstructions(instrs, table),
	}, nil
}
