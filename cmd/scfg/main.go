// Package main implements the scfg CLI.
// It reads bytecode listings, restructures their control flow into nested
// regions, and prints, exports or caches the result.
package main

import (
	"os"

	"github.com/l3aro/go-scfg/cmd/scfg/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.RootCmd.Flags().BoolP("version", "v", false, "Print version information")
	commands.RootCmd.SetVersionTemplate(`scfg version {{.Version}}
`)
	commands.RootCmd.Version = version
	if buildTime != "" {
		commands.RootCmd.Version = version + " (built " + buildTime + ")"
	}

	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
