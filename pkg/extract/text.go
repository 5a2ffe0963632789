package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	urlPattern     = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)
	joinedPattern  = regexp.MustCompile(`(?i)joined\s+(\p{L}+\s+\d{4})`)
	bgURLPattern   = regexp.MustCompile(`url\(["']?(https://[^"')]+)["']?\)`)
)

// Hashtags returns every #tag in text, in order of appearance
func Hashtags(text string) []string {
	return nonNil(hashtagPattern.FindAllString(text, -1))
}

// URLs returns every http(s) link in text, in order of appearance
func URLs(text string) []string {
	return nonNil(urlPattern.FindAllString(text, -1))
}

// LargeMediaURL rewrites a media CDN image URL to request the large JPEG rendition
func LargeMediaURL(src string) string {
	if i := strings.Index(src, "?format="); i >= 0 {
		return src[:i] + "?format=jpg&name=large"
	}
	return src
}

// LargeProfileImageURL swaps the thumbnail suffix for the 400x400 rendition
func LargeProfileImageURL(src string) string {
	return strings.Replace(src, "_normal", "_400x400", 1)
}

// ParseJoinDate reads "Joined March 2009" into the first day of that month, UTC
func ParseJoinDate(text string) (time.Time, bool) {
	m := joinedPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("January 2006", strings.Join(strings.Fields(m[1]), " "))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsExternalLink accepts absolute http(s) links that do not point at siteHost
// or one of its subdomains
func IsExternalLink(href, siteHost string) bool {
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	site := strings.ToLower(siteHost)
	if site == "" {
		return true
	}
	return host != site && !strings.HasSuffix(host, "."+site)
}

func backgroundImageURL(style string) string {
	m := bgURLPattern.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return m[1]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
