package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"xscraper/pkg/models"
)

// UnknownName is reported when no display name candidate is plausible
const UnknownName = "Unknown"

var (
	followersPattern   = regexp.MustCompile(`(?i)([\d,]+\.?\d*[KMB]?)\s*followers`)
	followingPattern   = regexp.MustCompile(`(?i)([\d,]+\.?\d*[KMB]?)\s*following`)
	postsCountPattern  = regexp.MustCompile(`([\d,]+\.?\d*[KMB]?)`)
	headerCountPattern = regexp.MustCompile(`(?i)^\s*([\d,]+\.?\d*[KMB]?)\s+(?:posts|tweets)\s*$`)
)

// NotExists reports whether the page states that the account does not exist
func NotExists(s *Snapshot) bool {
	text := strings.ToLower(s.Text())
	return strings.Contains(text, "doesn't exist") || strings.Contains(text, "doesn’t exist")
}

// Profile reads every profile field from s. Image URLs are returned upgraded;
// local paths are left for the caller to fill in.
func (e *Extractor) Profile(s *Snapshot, username string) models.ProfileRecord {
	rec := models.ProfileRecord{
		Username:        username,
		DisplayName:     e.Name(s),
		Bio:             e.Bio(s),
		Location:        e.Location(s),
		Website:         e.Website(s),
		ProfileImageURL: e.ProfileImage(s),
		BannerImageURL:  e.BannerImage(s),
		Followers:       e.Followers(s),
		Following:       e.Following(s),
		TweetsCount:     e.TweetsCount(s),
		Verified:        e.Verified(s),
		Protected:       e.Protected(s),
	}
	if joined, ok := e.JoinDate(s); ok {
		rec.JoinedDate = &joined
	}
	return rec
}

// Name returns the display name, or UnknownName
func (e *Extractor) Name(s *Snapshot) string {
	for _, sel := range nameSelectors {
		var name string
		s.Find(sel).EachWithBreak(func(_ int, c *goquery.Selection) bool {
			text := selectionText(c)
			if text != "" && !strings.HasPrefix(text, "@") && utf8.RuneCountInString(text) > 1 {
				name = text
			}
			return name == ""
		})
		if name != "" {
			return name
		}
	}
	e.miss("name")
	return UnknownName
}

func (e *Extractor) Bio(s *Snapshot) string {
	if v := firstText(s, bioSelectors); v != "" {
		return v
	}
	e.miss("bio")
	return ""
}

func (e *Extractor) Location(s *Snapshot) string {
	if v := firstText(s, locationSelectors); v != "" {
		return v
	}
	e.miss("location")
	return ""
}

// Website returns the first external link of the profile header. Only the
// first match of each selector is considered.
func (e *Extractor) Website(s *Snapshot) string {
	for _, sel := range websiteSelectors {
		if href, ok := s.Find(sel).First().Attr("href"); ok && IsExternalLink(href, e.siteHost) {
			return href
		}
	}
	e.miss("website")
	return ""
}

// JoinDate parses the "Joined <Month> <Year>" line
func (e *Extractor) JoinDate(s *Snapshot) (time.Time, bool) {
	var joined time.Time
	var found bool
	s.Find(joinDateSelector).EachWithBreak(func(_ int, parent *goquery.Selection) bool {
		parent.FindMatcher(spanSelector).AddSelection(parent).EachWithBreak(func(_ int, c *goquery.Selection) bool {
			joined, found = ParseJoinDate(selectionText(c))
			return !found
		})
		return !found
	})
	if found {
		return joined, true
	}
	e.miss("joined_date")
	return time.Time{}, false
}

func (e *Extractor) Verified(s *Snapshot) bool {
	return anyMatch(s, verifiedSelectors)
}

func (e *Extractor) Protected(s *Snapshot) bool {
	return anyMatch(s, protectedSelectors)
}

// ProfileImage returns the avatar URL upgraded to 400x400
func (e *Extractor) ProfileImage(s *Snapshot) string {
	avatar := func(src string) string {
		if strings.Contains(src, "profile_images") {
			return LargeProfileImageURL(src)
		}
		return ""
	}
	if src := firstAttr(s.Find(profilePhotoImgs), "src", avatar); src != "" {
		return src
	}
	if src := firstAttr(s.Find(backgroundImageDivs), "style", func(style string) string {
		return avatar(backgroundImageURL(style))
	}); src != "" {
		return src
	}
	if src := firstAttr(s.Find(anyImg), "src", avatar); src != "" {
		return src
	}
	e.miss("profile_image")
	return ""
}

func (e *Extractor) BannerImage(s *Snapshot) string {
	banner := func(src string) string {
		if strings.Contains(src, "profile_banners") {
			return src
		}
		return ""
	}
	if src := firstAttr(s.Find(backgroundImageDivs), "style", func(style string) string {
		return banner(backgroundImageURL(style))
	}); src != "" {
		return src
	}
	if src := firstAttr(s.Find(anyImg), "src", banner); src != "" {
		return src
	}
	e.miss("banner_image")
	return ""
}

// Followers reads the follower counter without confusing it with following
func (e *Extractor) Followers(s *Snapshot) int64 {
	strategies := []countStrategy{
		cssCount(followersSelectors, "following"),
		linkCount(func(href string) bool { return strings.Contains(href, "/followers") }),
		xpathCount(followersXPaths),
		textPatternCount(followersTextNodes, followersPattern, "followers", "following"),
		statBlockCount("followers", "following"),
	}
	if n, ok := firstCount(s, strategies); ok {
		return n
	}
	e.miss("followers")
	return 0
}

// Following reads the following counter without confusing it with followers
func (e *Extractor) Following(s *Snapshot) int64 {
	strategies := []countStrategy{
		cssCount(followingSelectors, "followers"),
		linkCount(func(href string) bool {
			return strings.Contains(href, "/following") && !strings.Contains(href, "/followers")
		}),
		xpathCount(followingXPaths),
		textPatternCount(followingTextNodes, followingPattern, "following", "followers"),
	}
	if n, ok := firstCount(s, strategies); ok {
		return n
	}
	e.miss("following")
	return 0
}

// TweetsCount reads the post total shown in the profile header or tabs
func (e *Extractor) TweetsCount(s *Snapshot) int64 {
	for _, n := range s.CSS(tweetsCountLinks) {
		text := strings.ToLower(trimmedText(n))
		if (strings.Contains(text, "posts") || strings.Contains(text, "tweets")) && hasDigit(text) {
			if m := postsCountPattern.FindString(text); m != "" {
				return ParseCount(m)
			}
		}
	}
	for _, n := range s.CSS(headerTexts) {
		if m := headerCountPattern.FindStringSubmatch(trimmedText(n)); m != nil {
			return ParseCount(m[1])
		}
	}
	e.miss("tweets_count")
	return 0
}

type countStrategy func(s *Snapshot) (int64, bool)

func firstCount(s *Snapshot, strategies []countStrategy) (int64, bool) {
	for _, try := range strategies {
		if n, ok := try(s); ok {
			return n, true
		}
	}
	return 0, false
}

func cssCount(sels []cascadia.Selector, exclude string) countStrategy {
	return func(s *Snapshot) (int64, bool) {
		for _, sel := range sels {
			for _, n := range s.CSS(sel) {
				if text := trimmedText(n); plausibleCount(text, exclude) {
					return ParseCount(text), true
				}
			}
		}
		return 0, false
	}
}

func linkCount(match func(href string) bool) countStrategy {
	return func(s *Snapshot) (int64, bool) {
		links := s.Find(profileLinksInBar).FilterFunction(func(_ int, link *goquery.Selection) bool {
			return match(link.AttrOr("href", ""))
		})
		return spanCount(links, "")
	}
}

func xpathCount(exprs []*xpath.Expr) countStrategy {
	return func(s *Snapshot) (int64, bool) {
		for _, expr := range exprs {
			for _, n := range s.XPath(expr) {
				if text := trimmedText(n); plausibleCount(text, "") {
					return ParseCount(text), true
				}
			}
		}
		return 0, false
	}
}

func textPatternCount(expr *xpath.Expr, pattern *regexp.Regexp, word, exclude string) countStrategy {
	return func(s *Snapshot) (int64, bool) {
		for _, n := range s.XPath(expr) {
			text := strings.ToLower(trimmedText(n))
			if !strings.Contains(text, word) || strings.Contains(text, exclude) {
				continue
			}
			if m := pattern.FindStringSubmatch(text); m != nil {
				return ParseCount(m[1]), true
			}
		}
		return 0, false
	}
}

func statBlockCount(word, exclude string) countStrategy {
	return func(s *Snapshot) (int64, bool) {
		blocks := s.Find(statBlocks).FilterFunction(func(_ int, block *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(NodeText(block.Get(0))), word)
		})
		return spanCount(blocks, exclude)
	}
}

// spanCount parses the first plausible counter among the spans below sel
func spanCount(sel *goquery.Selection, exclude string) (int64, bool) {
	var n int64
	var ok bool
	sel.FindMatcher(spanSelector).EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if text := selectionText(span); plausibleCount(text, exclude) {
			n, ok = ParseCount(text), true
		}
		return !ok
	})
	return n, ok
}

func firstText(s *Snapshot, sels []cascadia.Selector) string {
	for _, sel := range sels {
		if text := selectionText(s.Find(sel).First()); text != "" {
			return text
		}
	}
	return ""
}

func anyMatch(s *Snapshot, sels []cascadia.Selector) bool {
	for _, sel := range sels {
		if s.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func contains(ancestor, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
