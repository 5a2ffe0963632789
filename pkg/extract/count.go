package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var countJunk = regexp.MustCompile(`[^\d.KMB]`)

// ParseCount converts an abbreviated count such as "1.2K", "3M" or "12,345"
// into an integer. Anything unparsable yields 0.
func ParseCount(s string) int64 {
	if s == "" {
		return 0
	}
	s = strings.ToUpper(strings.NewReplacer(",", "", " ", "").Replace(s))
	s = countJunk.ReplaceAllString(s, "")

	multiplier := 1.0
	switch {
	case strings.Contains(s, "K"):
		multiplier, s = 1e3, strings.ReplaceAll(s, "K", "")
	case strings.Contains(s, "M"):
		multiplier, s = 1e6, strings.ReplaceAll(s, "M", "")
	case strings.Contains(s, "B"):
		multiplier, s = 1e9, strings.ReplaceAll(s, "B", "")
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0
	}
	return int64(math.Round(n * multiplier))
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// plausibleCount reports whether text can be a counter value that does not
// belong to the sibling metric named by exclude
func plausibleCount(text, exclude string) bool {
	if text == "" || !hasDigit(text) {
		return false
	}
	return exclude == "" || !strings.Contains(strings.ToLower(text), exclude)
}
