package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent by the browser session and by media downloads
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all configuration options for the profile scraper
type Config struct {
	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Scroll loop bounds and pacing
	Scroll ScrollConfig `yaml:"scroll" json:"scroll"`

	// Media download settings
	Media MediaConfig `yaml:"media" json:"media"`

	// Translation settings
	Translate TranslateConfig `yaml:"translate" json:"translate"`

	// Scrape targets and output
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig controls how the automated browser is located and launched
type BrowserConfig struct {
	Bin             string        `yaml:"bin" json:"bin"`
	Headless        bool          `yaml:"headless" json:"headless"`
	NoSandbox       bool          `yaml:"no_sandbox" json:"no_sandbox"`
	DownloadBrowser bool          `yaml:"download_browser" json:"download_browser"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth     int           `yaml:"window_width" json:"window_width"`
	WindowHeight    int           `yaml:"window_height" json:"window_height"`
	SettleDelay     time.Duration `yaml:"settle_delay" json:"settle_delay"`
	WaitTimeout     time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
}

// ScrollConfig holds the crawl loop bounds
type ScrollConfig struct {
	MaxStalls       int           `yaml:"max_stalls" json:"max_stalls"`
	MaxIterations   int           `yaml:"max_iterations" json:"max_iterations"`
	BaseDistance    int           `yaml:"base_distance" json:"base_distance"`
	DistanceStep    int           `yaml:"distance_step" json:"distance_step"`
	ScrollDelay     time.Duration `yaml:"scroll_delay" json:"scroll_delay"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RetrySettle     time.Duration `yaml:"retry_settle" json:"retry_settle"`
	ExpandDelay     time.Duration `yaml:"expand_delay" json:"expand_delay"`
	OvershootBack   int           `yaml:"overshoot_back" json:"overshoot_back"`
	OvershootAhead  int           `yaml:"overshoot_ahead" json:"overshoot_ahead"`
	OvershootSettle time.Duration `yaml:"overshoot_settle" json:"overshoot_settle"`
}

// MediaConfig holds media download configuration
type MediaConfig struct {
	Enabled             bool          `yaml:"enabled" json:"enabled"`
	RootDirectory       string        `yaml:"root_directory" json:"root_directory"`
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RequestsPerSecond   float64       `yaml:"requests_per_second" json:"requests_per_second"`
	BurstSize           int           `yaml:"burst_size" json:"burst_size"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	SkipVideos          bool          `yaml:"skip_videos" json:"skip_videos"`
}

// TranslateConfig holds translation configuration
type TranslateConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	Endpoint          string        `yaml:"endpoint" json:"endpoint"`
	TargetLanguage    string        `yaml:"target_language" json:"target_language"`
	MaxChunkSize      int           `yaml:"max_chunk_size" json:"max_chunk_size"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	RetryAttempts     int           `yaml:"retry_attempts" json:"retry_attempts"`
}

// ScrapeConfig holds what to scrape and where results go
type ScrapeConfig struct {
	BaseURL         string `yaml:"base_url" json:"base_url"`
	MaxTweets       int    `yaml:"max_tweets" json:"max_tweets"`
	MinTextLength   int    `yaml:"min_text_length" json:"min_text_length"`
	OutputDirectory string `yaml:"output_directory" json:"output_directory"`
	// MediaOnly keeps only posts that carry at least one image or video
	MediaOnly bool `yaml:"media_only" json:"media_only"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:        true,
			NoSandbox:       true,
			DownloadBrowser: true,
			UserAgent:       DefaultUserAgent,
			WindowWidth:     1920,
			WindowHeight:    1080,
			SettleDelay:     2 * time.Second,
			WaitTimeout:     15 * time.Second,
		},
		Scroll: ScrollConfig{
			MaxStalls:       8,
			MaxIterations:   50,
			BaseDistance:    1500,
			DistanceStep:    100,
			ScrollDelay:     3 * time.Second,
			RetryDelay:      3 * time.Second,
			RetrySettle:     5 * time.Second,
			ExpandDelay:     time.Second,
			OvershootBack:   500,
			OvershootAhead:  1000,
			OvershootSettle: 2 * time.Second,
		},
		Media: MediaConfig{
			Enabled:             true,
			RootDirectory:       "downloaded_images",
			ConcurrentDownloads: 4,
			DownloadTimeout:     10 * time.Second,
			RequestsPerSecond:   5,
			BurstSize:           4,
			RetryAttempts:       2,
		},
		Translate: TranslateConfig{
			Enabled:           true,
			Endpoint:          "https://translate.googleapis.com/translate_a/single",
			TargetLanguage:    "en",
			MaxChunkSize:      4000,
			Timeout:           15 * time.Second,
			RequestsPerSecond: 2,
			RetryAttempts:     2,
		},
		Scrape: ScrapeConfig{
			BaseURL:         "https://x.com",
			MaxTweets:       10,
			MinTextLength:   20,
			OutputDirectory: "./output",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if bin := os.Getenv("XSCRAPER_BROWSER_BIN"); bin != "" {
		c.Browser.Bin = bin
	}
	if headless := os.Getenv("XSCRAPER_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true"
	}
	if userAgent := os.Getenv("XSCRAPER_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
	}
	if settle := os.Getenv("XSCRAPER_SETTLE_DELAY"); settle != "" {
		d, err := time.ParseDuration(settle)
		if err != nil {
			errs = append(errs, fmt.Errorf("XSCRAPER_SETTLE_DELAY: %w", err))
		} else {
			c.Browser.SettleDelay = d
		}
	}

	if mediaDir := os.Getenv("XSCRAPER_MEDIA_DIR"); mediaDir != "" {
		c.Media.RootDirectory = mediaDir
	}
	if concurrent := os.Getenv("XSCRAPER_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Media.ConcurrentDownloads = val
		}
	}

	if enabled := os.Getenv("XSCRAPER_TRANSLATE_ENABLED"); enabled != "" {
		c.Translate.Enabled = strings.ToLower(enabled) == "true"
	}
	if endpoint := os.Getenv("XSCRAPER_TRANSLATE_ENDPOINT"); endpoint != "" {
		c.Translate.Endpoint = endpoint
	}

	if maxTweets := os.Getenv("XSCRAPER_MAX_TWEETS"); maxTweets != "" {
		var val int
		fmt.Sscanf(maxTweets, "%d", &val)
		if val > 0 {
			c.Scrape.MaxTweets = val
		}
	}
	if mediaOnly := os.Getenv("XSCRAPER_MEDIA_ONLY"); mediaOnly != "" {
		c.Scrape.MediaOnly = strings.ToLower(mediaOnly) == "true"
	}
	if outputDir := os.Getenv("XSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Scrape.OutputDirectory = outputDir
	}

	if logLevel := os.Getenv("XSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("XSCRAPER_LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".xscraper.yaml",
		".xscraper.yml",
		filepath.Join(home, ".config", "xscraper", "config.yaml"),
		filepath.Join(home, ".config", "xscraper", "config.yml"),
		filepath.Join(home, ".xscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.UserAgent == "" {
		errs = append(errs, errors.New("browser user agent is required"))
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		errs = append(errs, errors.New("browser window size must be positive"))
	}
	if c.Browser.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay cannot be negative"))
	}
	if c.Browser.WaitTimeout <= 0 {
		errs = append(errs, errors.New("wait timeout must be positive"))
	}

	if c.Scroll.MaxStalls <= 0 {
		errs = append(errs, errors.New("max stalls must be positive"))
	}
	if c.Scroll.MaxIterations <= 0 {
		errs = append(errs, errors.New("max iterations must be positive"))
	}
	if c.Scroll.BaseDistance <= 0 {
		errs = append(errs, errors.New("base scroll distance must be positive"))
	}
	if c.Scroll.DistanceStep < 0 {
		errs = append(errs, errors.New("scroll distance step cannot be negative"))
	}

	if c.Media.RootDirectory == "" {
		errs = append(errs, errors.New("media root directory is required"))
	}
	if c.Media.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Media.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Media.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Media.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("media requests per second must be positive"))
	}

	if c.Translate.Enabled {
		if c.Translate.Endpoint == "" {
			errs = append(errs, errors.New("translation endpoint is required when translation is enabled"))
		}
		if c.Translate.MaxChunkSize <= 0 {
			errs = append(errs, errors.New("translation chunk size must be positive"))
		}
		if c.Translate.TargetLanguage == "" {
			errs = append(errs, errors.New("translation target language is required"))
		}
	}

	if c.Scrape.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.Scrape.MaxTweets <= 0 {
		errs = append(errs, errors.New("max tweets must be positive"))
	}
	if c.Scrape.MinTextLength < 0 {
		errs = append(errs, errors.New("min text length cannot be negative"))
	}
	if c.Scrape.OutputDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true, "": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if bin, ok := flags["browser-bin"].(string); ok && bin != "" {
		c.Browser.Bin = bin
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if settle, ok := flags["settle-delay"].(time.Duration); ok && settle >= 0 {
		c.Browser.SettleDelay = settle
	}
	if mediaDir, ok := flags["media-dir"].(string); ok && mediaDir != "" {
		c.Media.RootDirectory = mediaDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Media.ConcurrentDownloads = concurrent
	}
	if noMedia, ok := flags["no-media"].(bool); ok && noMedia {
		c.Media.Enabled = false
	}
	if noTranslate, ok := flags["no-translate"].(bool); ok && noTranslate {
		c.Translate.Enabled = false
	}
	if maxTweets, ok := flags["max-tweets"].(int); ok && maxTweets > 0 {
		c.Scrape.MaxTweets = maxTweets
	}
	if mediaOnly, ok := flags["media-only"].(bool); ok {
		c.Scrape.MediaOnly = mediaOnly
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Scrape.OutputDirectory = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
