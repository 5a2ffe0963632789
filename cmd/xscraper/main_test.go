package main

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/config"
	"xscraper/pkg/ui"
)

func TestFlagOverridesOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addScrapeFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"-n", "25", "--no-media", "--headless=false", "--media-only"}))

	flags := flagOverrides(cmd)
	assert.Equal(t, 25, flags["max-tweets"])
	assert.Equal(t, true, flags["no-media"])
	assert.Equal(t, false, flags["headless"])
	assert.Equal(t, true, flags["media-only"])
	assert.NotContains(t, flags, "output")
	assert.NotContains(t, flags, "no-translate")

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, 25, cfg.Scrape.MaxTweets)
	assert.False(t, cfg.Media.Enabled)
	assert.True(t, cfg.Translate.Enabled)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Scrape.MediaOnly)
}

func TestConfigInitWritesLoadableFile(t *testing.T) {
	prevOut, prevFile := ui.Output, configFile
	t.Cleanup(func() { ui.Output, configFile = prevOut, prevFile })
	ui.Output = io.Discard

	configFile = filepath.Join(t.TempDir(), "nested", "xscraper.yaml")
	require.NoError(t, runConfigInit(nil, nil))

	cfg, err := config.Load(configFile, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Scroll, cfg.Scroll)

	assert.Error(t, runConfigInit(nil, nil), "existing file must not be overwritten")
}
