package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/logger"
	"xscraper/pkg/metadata"
	"xscraper/pkg/models"
	"xscraper/pkg/scraper"
	"xscraper/pkg/ui"
	"xscraper/pkg/validate"
)

var (
	// Scrape command flags
	outputDir   string
	mediaDir    string
	browserBin  string
	maxTweets   int
	concurrent  int
	noMedia     bool
	noTranslate bool
	mediaOnly   bool
	headless    bool
	settleDelay time.Duration
)

// scrapeCmd reads the profile and its posts
var scrapeCmd = &cobra.Command{
	Use:   "scrape <username>",
	Short: "Scrape a profile and its latest posts",
	Long: `Scrape the profile header and the latest original posts of a user.

Results are written to <output>/<username>/ as profile.json, tweets.json and
summary.json. Media goes to the media directory, one folder per user.`,
	Example: `  # Profile and the 10 latest posts
  xscraper scrape janedoe

  # 50 posts, no media, keep the original language
  xscraper scrape janedoe -n 50 --no-media --no-translate

  # Use a specific browser binary and a visible window
  xscraper scrape janedoe --browser-bin /usr/bin/chromium --headless=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, args[0], true, true)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <username>",
	Short: "Scrape only the profile header",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, args[0], true, false)
	},
}

var tweetsCmd = &cobra.Command{
	Use:     "tweets <username>",
	Aliases: []string{"posts"},
	Short:   "Scrape only the latest posts",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, args[0], false, true)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{scrapeCmd, profileCmd, tweetsCmd} {
		rootCmd.AddCommand(cmd)
		addScrapeFlags(cmd)
	}
	// A bare username on the root command behaves like scrape
	addScrapeFlags(rootCmd)
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return run(cmd, args[0], true, true)
		}
		return cmd.Help()
	}
}

func addScrapeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for JSON results (default ./output)")
	cmd.Flags().StringVar(&mediaDir, "media-dir", "", "directory for downloaded media (default downloaded_images)")
	cmd.Flags().StringVar(&browserBin, "browser-bin", "", "path to a Chromium or Chrome binary")
	cmd.Flags().IntVarP(&maxTweets, "max-tweets", "n", 0, "number of posts to collect (default 10)")
	cmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent media downloads")
	cmd.Flags().BoolVar(&noMedia, "no-media", false, "do not download images and videos")
	cmd.Flags().BoolVar(&noTranslate, "no-translate", false, "keep posts in their original language")
	cmd.Flags().BoolVar(&mediaOnly, "media-only", false, "keep only posts with images or videos")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser without a window")
	cmd.Flags().DurationVar(&settleDelay, "settle-delay", 0, "pause after each navigation")
}

// flagOverrides collects only the flags the user actually set
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, v interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = v
		}
	}
	set("output", outputDir)
	set("media-dir", mediaDir)
	set("browser-bin", browserBin)
	set("max-tweets", maxTweets)
	set("concurrent", concurrent)
	set("no-media", noMedia)
	set("no-translate", noTranslate)
	set("media-only", mediaOnly)
	set("headless", headless)
	set("settle-delay", settleDelay)
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

func run(cmd *cobra.Command, rawUsername string, wantProfile, wantTweets bool) error {
	username, err := validate.Username(rawUsername)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithField("username", username)
	log.WithField("version", version).Info("xscraper starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Target Profile", "@"+username)
	ui.PrintHighlight("[LAUNCHING BROWSER]")

	s, err := scraper.Open(ctx, cfg, logger.GetLogger())
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
		}
	}()

	out := metadata.NewWriter(cfg.Scrape.OutputDirectory)
	if n, err := metadata.CleanTemp(out.Dir(username)); err != nil {
		log.WithError(err).Warn("Failed to clean temporary files")
	} else if n > 0 {
		log.WithField("removed", n).Debug("Removed leftover temporary files")
	}

	if wantProfile {
		rec, err := scrapeProfile(ctx, s, out, username)
		if err != nil {
			return err
		}
		ui.PrintProfile(rec)
		fmt.Fprintln(ui.Output)
	}

	if wantTweets {
		if err := scrapeTweets(ctx, s, out, username, cfg.Scrape.MaxTweets); err != nil {
			return err
		}
	}

	ui.PrintSuccess("[EXTRACTION COMPLETED] results in " + out.Dir(username))
	return nil
}

func scrapeProfile(ctx context.Context, s *scraper.Scraper, out *metadata.Writer, username string) (models.ProfileRecord, error) {
	ui.PrintHighlight("[READING PROFILE]")

	res := s.ScrapeProfile(ctx, username)
	switch res.Kind {
	case errs.KindNotFound:
		ui.PrintWarning("Profile not found", "@"+username)
		return models.ProfileRecord{}, errs.NewNotFound(fmt.Sprintf("@%s: %s", username, res.Reason))
	case errs.KindTransientError:
		return models.ProfileRecord{}, fmt.Errorf("failed to scrape profile: %w", res.Err)
	}

	if _, err := out.SaveProfile(username, res.Value); err != nil {
		return res.Value, err
	}
	return res.Value, nil
}

func scrapeTweets(ctx context.Context, s *scraper.Scraper, out *metadata.Writer, username string, max int) error {
	ui.PrintHighlight(fmt.Sprintf("[SCANNING TIMELINE] up to %d posts", max))

	posts, summary, err := s.ScrapeTweets(ctx, username, max)
	if err != nil && len(posts) == 0 {
		return err
	}
	if err != nil {
		// Interrupted: keep what was collected
		ui.PrintWarning("Scrape interrupted, saving partial results", err)
	}

	if _, werr := out.SaveTweets(username, posts); werr != nil {
		return werr
	}
	if _, werr := out.SaveSummary(username, summary); werr != nil {
		return werr
	}

	ui.PrintPosts(posts)
	fmt.Fprintln(ui.Output)
	ui.PrintSummary(summary)
	return err
}
