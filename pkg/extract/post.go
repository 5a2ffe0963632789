package extract

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// PostCandidate is what one post container on the timeline yielded. Filtering
// by author, reply status, length and duplicates is the caller's decision.
type PostCandidate struct {
	AuthorHref string
	Author     string
	IsReply    bool
	Text       string
	PostedAt   time.Time
	HasTime    bool
	ImageURLs  []string
	VideoURLs  []string
}

// AuthoredBy reports whether the post's own author link names username
func (c PostCandidate) AuthoredBy(username string) bool {
	return c.Author != "" && strings.EqualFold(c.Author, username)
}

// MediaURLs returns images followed by videos, without duplicates
func (c PostCandidate) MediaURLs(includeVideos bool) []string {
	out := make([]string, 0, len(c.ImageURLs)+len(c.VideoURLs))
	seen := make(map[string]struct{}, cap(out))
	add := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	for _, u := range c.ImageURLs {
		add(u)
	}
	if includeVideos {
		for _, u := range c.VideoURLs {
			add(u)
		}
	}
	return out
}

// Posts returns one candidate per post container in document order. Containers
// without text are skipped.
func (e *Extractor) Posts(s *Snapshot) []PostCandidate {
	articles := s.XPath(articleXPath)
	out := make([]PostCandidate, 0, len(articles))
	for _, article := range articles {
		c, ok := e.post(article)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (e *Extractor) post(article *html.Node) (PostCandidate, bool) {
	var c PostCandidate

	if link := first(xpathIn(article, authorLinkXPath)); link != nil {
		c.AuthorHref = attr(link, "href")
		c.Author = authorFromHref(c.AuthorHref)
	}
	c.IsReply = len(xpathIn(article, replyingToXPath)) > 0

	textNode := first(xpathIn(article, tweetTextXPath))
	if textNode == nil {
		for _, sel := range tweetTextFallbacks {
			if textNode = first(queryIn(article, sel)); textNode != nil {
				break
			}
		}
	}
	if textNode == nil {
		e.miss("post_text")
		return c, false
	}
	c.Text = trimmedText(textNode)

	if t := first(xpathIn(article, timeXPath)); t != nil {
		if posted, err := time.Parse(time.RFC3339, attr(t, "datetime")); err == nil {
			c.PostedAt = posted.UTC()
			c.HasTime = true
		}
	}

	c.ImageURLs = postImages(article)
	c.VideoURLs = postVideos(article)
	return c, true
}

// postImages collects media CDN images near the post text, outside any quoted post
func postImages(article *html.Node) []string {
	area := first(xpathIn(article, mediaAreaXPath))
	if area == nil || !contains(article, area) {
		area = article
	}

	var out []string
	seen := make(map[string]struct{})
	for _, img := range xpathIn(area, mediaImgXPath) {
		src := attr(img, "src")
		if src == "" || !strings.Contains(src, "media") {
			continue
		}
		src = LargeMediaURL(src)
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return nonNil(out)
}

func postVideos(article *html.Node) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range xpathIn(article, videoXPath) {
		src := attr(v, "src")
		// blob: sources are only meaningful inside the page
		if src == "" || strings.HasPrefix(src, "blob:") {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return nonNil(out)
}

// authorFromHref returns the first path segment of a profile or status link
func authorFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	seg := strings.Trim(u.Path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	return seg
}
