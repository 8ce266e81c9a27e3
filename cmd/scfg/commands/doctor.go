package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the configuration",
	Long: `Checks that the opcode table loads, that the cache directory is
writable, and that a small built-in listing restructures and verifies.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, configPath, err := loadConfigWithPath()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		result, err := healthcheck.Check(cfg, configPath, configPath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(os.Stdout, result)

		if result.HasError() {
			return fmt.Errorf("health check failed: one or more checks did not pass")
		}
		return nil
	},
}

// loadConfigWithPath loads the effective config and reports which file it
// came from. Without any config file the defaults are checked.
func loadConfigWithPath() (*config.Config, string, error) {
	if configFlag != "" {
		cfg, err := config.LoadFromFile(configFlag)
		return cfg, configFlag, err
	}

	projectConfigPath := config.ProjectConfigFilePath()
	globalConfigPath := config.GlobalConfigFilePath()

	var effectivePath string
	if fileExists(projectConfigPath) {
		effectivePath = projectConfigPath
	} else if fileExists(globalConfigPath) {
		effectivePath = globalConfigPath
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	return cfg, effectivePath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func displayDoctorResult(w io.Writer, result *healthcheck.HealthCheckResult) {
	if result.EffectivePath == "" {
		fmt.Fprintln(w, "Using config: built-in defaults (run 'scfg init' to create a config file)")
	} else {
		fmt.Fprintf(w, "Using config: %s (%s)\n", result.EffectivePath, result.EffectiveScope)
	}

	fmt.Fprintln(w, "\nOpcode Table:")
	printComponentStatus(w, result.Table)

	fmt.Fprintln(w, "\nGraph Cache:")
	printComponentStatus(w, result.Cache)

	fmt.Fprintln(w, "\nSelf Test:")
	printComponentStatus(w, result.SelfTest)
}

func printComponentStatus(w io.Writer, s healthcheck.ComponentStatus) {
	if s.Detail != "" {
		fmt.Fprintf(w, "  %s\n", s.Detail)
	}
	fmt.Fprintf(w, "  Status: %s %s\n", formatStatusIcon(s.Status), s.Status)
	if s.Error != "" && s.Status == healthcheck.StatusError {
		fmt.Fprintf(w, "  Error: %s\n", s.Error)
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusReady:
		return "✓"
	case healthcheck.StatusDisabled:
		return "◐"
	case healthcheck.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
