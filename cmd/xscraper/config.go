package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"xscraper/pkg/browser"
	"xscraper/pkg/config"
	"xscraper/pkg/logger"
	"xscraper/pkg/ui"
)

const defaultConfigPath = ".xscraper.yaml"

const configHeader = `# xscraper configuration
#
# Every option can also be set through XSCRAPER_* environment variables
# (for example XSCRAPER_BROWSER_BIN or XSCRAPER_MAX_TWEETS) or a .env file.
# Durations use Go syntax: 500ms, 3s, 1m.

`

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage xscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (XSCRAPER_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file is written to '.xscraper.yaml' unless --config names another path.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and the browser setup",
	Long: `Validate the configuration and check the environment it needs.

This command checks:
  - YAML syntax and value ranges
  - Output, media and log directories can be created
  - A browser binary can be resolved`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func renderConfig(cfg *config.Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to format configuration: %w", err)
	}
	return data, nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	data, err := renderConfig(config.DefaultConfig())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Edit the file, for example to point browser.bin at your Chromium")
	fmt.Fprintln(ui.Output, "2. Run 'xscraper config validate' to check it")
	fmt.Fprintln(ui.Output, "3. Start with 'xscraper scrape <username>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := renderConfig(cfg)
	if err != nil {
		return err
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	fmt.Fprintln(ui.Output, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Output, "1. Command line flags")
	fmt.Fprintln(ui.Output, "2. Environment variables (XSCRAPER_*)")
	fmt.Fprintln(ui.Output, "3. .env file")
	if configFile != "" {
		fmt.Fprintf(ui.Output, "4. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(ui.Output, "4. Configuration file: (searched in default locations)")
	}
	fmt.Fprintln(ui.Output, "5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var problems []string
	for _, dir := range []string{cfg.Scrape.OutputDirectory, cfg.Media.RootDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create directory %s: %v", dir, err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	// Resolving must not trigger a download here
	probe := cfg.Browser
	probe.DownloadBrowser = false
	bin, err := browser.ResolveBinary(probe, logger.NewNopLogger())
	if err != nil {
		if cfg.Browser.DownloadBrowser {
			ui.PrintWarning("No local browser found, one will be downloaded on first run")
		} else {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Fprintf(ui.Output, "  - %s\n", p)
		}
		return fmt.Errorf("%d configuration problem(s)", len(problems))
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	if bin != "" {
		fmt.Fprintf(ui.Output, "  Browser: %s\n", bin)
	}
	fmt.Fprintf(ui.Output, "  Output directory: %s\n", cfg.Scrape.OutputDirectory)
	fmt.Fprintf(ui.Output, "  Media directory: %s (enabled: %t)\n", cfg.Media.RootDirectory, cfg.Media.Enabled)
	fmt.Fprintf(ui.Output, "  Concurrent downloads: %d\n", cfg.Media.ConcurrentDownloads)
	fmt.Fprintf(ui.Output, "  Translation: %t (target %s)\n", cfg.Translate.Enabled, cfg.Translate.TargetLanguage)
	fmt.Fprintf(ui.Output, "  Max posts: %d\n", cfg.Scrape.MaxTweets)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
