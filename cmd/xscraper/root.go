package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	errs "xscraper/pkg/errors"
	"xscraper/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	noLogo     bool
)

// exitNotFound is returned to the shell when the profile does not exist
const exitNotFound = 2

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xscraper",
	Short: "Scrape X profiles and their posts through a real browser",
	Long: `xscraper drives a headless Chromium to read an X profile page and its
timeline, the way a visitor would see it.

Features:
  - Profile header: name, bio, location, website, join date, counters
  - Original posts only: reposts, replies and duplicates are skipped
  - Language detection with optional translation to a target language
  - Media download with bounded concurrency and rate limiting
  - JSON export of profile, posts and a run summary`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.NoColor = noColor || !ui.IsTerminal(os.Stdout)
		if noLogo {
			return
		}
		// Don't show logo for certain commands
		switch cmd.Name() {
		case "version", "help", "show":
		default:
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		if errors.Is(err, errs.ErrNotFound) {
			os.Exit(exitNotFound)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .xscraper.yaml or $HOME/.config/xscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noLogo, "no-logo", false, "do not print the banner")

	rootCmd.SetVersionTemplate(`xscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xscraper %s\n", rootCmd.Version)
		},
	})
}
