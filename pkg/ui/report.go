package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"xscraper/pkg/metadata"
	"xscraper/pkg/models"
	"xscraper/pkg/scraper"
)

const (
	ProgressFilled = "█"
	ProgressEmpty  = "░"
	excerptLength  = 100
)

// ProgressBar renders done out of total as a fixed-width bar
func ProgressBar(done, total, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(ProgressFilled, filled),
		strings.Repeat(ProgressEmpty, width-filled),
		done, total)
}

// HumanCount formats counts the way profile pages show them
func HumanCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return trimFloat(float64(n)/1e9) + "B"
	case n >= 1_000_000:
		return trimFloat(float64(n)/1e6) + "M"
	case n >= 10_000:
		return trimFloat(float64(n)/1e3) + "K"
	default:
		return strconv.FormatInt(n, 10)
	}
}

func trimFloat(f float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(f, 'f', 1, 64), ".0")
}

// PrintProfile prints a profile card
func PrintProfile(rec models.ProfileRecord) {
	PrintHighlight(fmt.Sprintf("[PROFILE] @%s", rec.Username))
	PrintInfo("Name", rec.DisplayName)
	if rec.Bio != "" {
		PrintInfo("Bio", metadata.Excerpt(rec.Bio, excerptLength))
	}
	if rec.Location != "" {
		PrintInfo("Location", rec.Location)
	}
	if rec.Website != "" {
		PrintInfo("Website", rec.Website)
	}
	if rec.JoinedDate != nil {
		PrintInfo("Joined", rec.JoinedDate.Format("January 2006"))
	}
	PrintInfo("Followers", HumanCount(rec.Followers))
	PrintInfo("Following", HumanCount(rec.Following))
	PrintInfo("Posts", HumanCount(rec.TweetsCount))

	var flags []string
	if rec.Verified {
		flags = append(flags, "verified")
	}
	if rec.Protected {
		flags = append(flags, "protected")
	}
	if len(flags) > 0 {
		PrintInfo("Flags", strings.Join(flags, ", "))
	}
}

// PrintPosts prints one line per post
func PrintPosts(posts []models.PostRecord) {
	for i, p := range posts {
		text := p.NormalizedText
		if text == "" {
			text = p.Text
		}
		line := fmt.Sprintf("%2d. %s %s", i+1, Dim(p.PostedAt.Format("2006-01-02")), metadata.Excerpt(text, excerptLength))
		if p.Language != "" {
			line += " " + Dim("["+p.Language+"]")
		}
		if len(p.MediaPaths) > 0 {
			line += " " + Cyan(fmt.Sprintf("+%d media", len(p.MediaPaths)))
		}
		fmt.Fprintln(Output, line)
	}
}

// PrintSummary prints the outcome of a posts run
func PrintSummary(s scraper.Summary) {
	fmt.Fprintf(Output, "%s %s\n", Green("[EXTRACTED]"), ProgressBar(s.Collected, s.Requested, 20))
	PrintInfo("Stopped", string(s.Scroll.Reason))
	PrintInfo("Scrolls", fmt.Sprintf("%d (stalls %d, retries %d)", s.Scroll.Iterations, s.Scroll.Stalls, s.Scroll.Retries))
	if s.MediaQueued > 0 {
		PrintInfo("Media", fmt.Sprintf("%d/%d saved", s.MediaSaved, s.MediaQueued))
	}
	if s.Translated > 0 {
		PrintInfo("Translated", strconv.Itoa(s.Translated))
	}
	PrintInfo("Duration", s.Duration.Round(time.Millisecond).String())
}
