package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/internal/healthcheck"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize scfg configuration interactively",
	Long: `Guides you through setting up scfg configuration step by step.
Creates a config file with the opcode table, logging and cache settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	cfg := config.DefaultConfig()

	// === SECTION 1: Opcode Table ===
	tableChoice := "builtin"
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Opcode Table - Classifies jump and return opcodes").
				Description("Select the instruction set of your listings").
				Options(
					huh.NewOption("Built-in CPython table", "builtin"),
					huh.NewOption("Custom YAML table", "custom"),
				).
				Value(&tableChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	if tableChoice == "custom" {
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Path of the opcode table").
					Placeholder("tables/custom.yaml").
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("a path is required")
						}
						return nil
					}).
					Value(&cfg.OpcodeTable),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
	}

	// === SECTION 2: Logging and Verification ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Info", "info"),
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&cfg.LogLevel),
			huh.NewConfirm().
				Title("Verify restructured graphs?").
				Description("Checks every block appears exactly once in the result").
				Affirmative("Yes").
				Negative("No").
				Value(&cfg.Verify),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Cache ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Graph Cache - Reuses restructured graphs of unchanged listings").
				Affirmative("Enable").
				Negative("Disable").
				Value(&cfg.CacheEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	if cfg.CacheEnabled {
		cacheSize := strconv.Itoa(cfg.CacheSize)
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Cache directory").
					Placeholder(cfg.CacheDir).
					Value(&cfg.CacheDir),
				huh.NewInput().
					Title("Maximum number of cached graphs").
					Placeholder("256").
					Validate(func(s string) error {
						if n, err := strconv.Atoi(s); err != nil || n < 0 {
							return fmt.Errorf("enter a non-negative number")
						}
						return nil
					}).
					Value(&cacheSize),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		cfg.CacheSize, _ = strconv.Atoi(cacheSize)
	}

	// === SECTION 4: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.scfg/config.yaml)", "global"),
					huh.NewOption("Project (./.scfg/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigFilePath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigFilePath()
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Show config preview
	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	if cfg.OpcodeTable == "" {
		fmt.Println("Opcode Table: built-in (cpython)")
	} else {
		fmt.Printf("Opcode Table: %s\n", cfg.OpcodeTable)
	}
	fmt.Printf("Log Level: %s\n", cfg.LogLevel)
	fmt.Printf("Verify: %t\n", cfg.Verify)
	if cfg.CacheEnabled {
		fmt.Printf("Cache: %s (%d graphs)\n", cfg.CacheDir, cfg.CacheSize)
	} else {
		fmt.Println("Cache: disabled")
	}
	fmt.Println("================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)

	// === SECTION 5: Health Check ===
	fmt.Println("\n=== Running Health Check ===")

	loadedCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}
	result, err := healthcheck.Check(loadedCfg, configPath, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Printf("\nConfig Scope: %s\n", result.SavedScope)
	if absPath, err := filepath.Abs(configPath); err == nil {
		fmt.Printf("Config Path: %s\n\n", absPath)
	}
	displayDoctorResult(os.Stdout, result)

	if result.HasError() {
		fmt.Println("\nSome checks failed. Edit the config and run 'scfg doctor' again.")
	}
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
