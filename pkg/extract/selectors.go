package extract

import (
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
)

// X.com DOM selectors. The markup changes often, so every field keeps an
// ordered fallback chain; the first strategy yielding a plausible value wins.

var (
	nameSelectors = compileAll(
		`div[data-testid="UserName"] span span`,
		`h1[role="heading"] span span`,
		`[data-testid="UserName"] span:first-child`,
		`h1 span:first-child`,
		`.css-1jxf684 span`,
	)

	bioSelectors = compileAll(
		`[data-testid="UserDescription"]`,
		`div[data-testid="UserDescription"]`,
		`[data-testid="UserDescription"] span`,
	)

	locationSelectors = compileAll(
		`[data-testid="UserLocation"]`,
		`span[data-testid="UserLocation"]`,
	)

	websiteSelectors = compileAll(
		`a[data-testid="UserUrl"]`,
		`[data-testid="UserUrl"] a`,
		`a[href*="http"]`,
	)

	joinDateSelector  = cascadia.MustCompile(`[data-testid="UserJoinDate"]`)
	spanSelector      = cascadia.MustCompile(`span`)
	profileLinksInBar = cascadia.MustCompile(`div[data-testid="UserName"] ~ div a`)
	statBlocks        = cascadia.MustCompile(`div[data-testid="UserName"] ~ div div`)
	tweetsCountLinks  = cascadia.MustCompile(`nav a, [role="tablist"] a`)
	headerTexts       = cascadia.MustCompile(`h2 ~ div, [data-testid="primaryColumn"] h2 + div`)

	verifiedSelectors = compileAll(
		`[data-testid="UserName"] svg[data-testid="icon-verified"]`,
		`[data-testid="verificationBadge"]`,
		`svg[aria-label*="Verified"]`,
		`svg[aria-label*="verified"]`,
	)

	protectedSelectors = compileAll(
		`[data-testid="UserName"] svg[data-testid="icon-lock"]`,
		`svg[aria-label*="protected"]`,
		`svg[aria-label*="locked"]`,
		`[data-testid="protectedBadge"]`,
	)

	profilePhotoImgs    = cascadia.MustCompile(`img[alt="Opens profile photo"]`)
	backgroundImageDivs = cascadia.MustCompile(`div[style*="background-image"]`)
	anyImg              = cascadia.MustCompile(`img`)
)

// Follower/following strategies. The two counters sit side by side and naive
// selectors read one for the other, so every strategy carries the sibling
// metric's word as an exclusion.
var (
	followersSelectors = compileAll(
		`a[href$="/followers"] span`,
		`a[href*="/followers"] span span`,
		`a[href*="/verified_followers"] span`,
		`div[data-testid="UserName"] ~ div a[href*="/followers"] span`,
	)

	followingSelectors = compileAll(
		`a[href$="/following"] span`,
		`a[href*="/following"] span span`,
		`div[data-testid="UserName"] ~ div a[href*="/following"] span`,
	)

	followersXPaths = compileXPaths(
		`//a[contains(@href, '/followers')]/span[contains(text(), 'Followers')]/preceding-sibling::span`,
		`//a[contains(@href, '/followers')]//span[contains(text(), 'Followers')]/../span[1]`,
		`//span[contains(text(), 'Followers')]/preceding-sibling::span`,
		`//span[contains(text(), 'Followers')]/../span[1]`,
	)

	followingXPaths = compileXPaths(
		`//a[contains(@href, '/following') and not(contains(@href, '/followers'))]/span[contains(text(), 'Following')]/preceding-sibling::span`,
		`//a[contains(@href, '/following') and not(contains(@href, '/followers'))]//span[contains(text(), 'Following')]/../span[1]`,
		`//span[contains(text(), 'Following') and not(contains(text(), 'Followers'))]/preceding-sibling::span`,
	)

	followersTextNodes = xpath.MustCompile(`//*[contains(text(), 'Followers')]`)
	followingTextNodes = xpath.MustCompile(`//*[contains(text(), 'Following')]`)
)

// Post selectors
var (
	articleXPath    = xpath.MustCompile(`//article[@role="article"]`)
	authorLinkXPath = xpath.MustCompile(`.//div[@data-testid="User-Name"]//a[contains(@href, "/")]`)
	replyingToXPath = xpath.MustCompile(`.//span[contains(text(), "Replying to")]`)
	tweetTextXPath  = xpath.MustCompile(`.//div[@data-testid="tweetText"]`)
	timeXPath       = xpath.MustCompile(`.//time`)
	mediaAreaXPath  = xpath.MustCompile(`.//div[@data-testid="tweetText"]/parent::*/parent::*`)
	mediaImgXPath   = xpath.MustCompile(`.//img[contains(@src,"twimg.com/media")]`)
	videoXPath      = xpath.MustCompile(`.//video[@src] | .//video/source[@src]`)

	tweetTextFallbacks = compileAll(
		`[data-testid="tweetText"]`,
		`span[data-testid="tweetText"]`,
	)
)

// Live-page XPaths used by the browser session rather than the snapshot
var (
	// ShowMoreXPaths expand truncated posts in place
	ShowMoreXPaths = []string{
		`//article[@role="article"]//div[@data-testid="tweetText"]/following-sibling::*//span[text()="Show more"]`,
		`//article[@role="article"]//button[@data-testid="tweet-text-show-more-link"]`,
	}

	// RetryXPaths match the timeline's error-recovery buttons, most specific last
	RetryXPaths = []string{
		`//span[contains(text(), "Retry")]`,
		`//span[contains(text(), "Try again")]`,
		`//button[contains(text(), "Retry")]`,
		`//button[contains(text(), "Try again")]`,
		`//div[contains(text(), "Retry")]`,
		`//div[contains(text(), "Try again")]`,
		`//span[contains(text(), "Something went wrong")]/..//span[contains(text(), "Retry")]`,
		`//div[@role="button" and contains(., "Retry")]`,
		`//div[@role="button" and contains(., "Try again")]`,
	}

	// ArticleSelector is the CSS form of the post container, for waits
	ArticleSelector = `article[role="article"]`

	// HeadingSelector signals that a profile header rendered
	HeadingSelector = `h1`
)

func compileAll(sels ...string) []cascadia.Selector {
	out := make([]cascadia.Selector, len(sels))
	for i, s := range sels {
		out[i] = cascadia.MustCompile(s)
	}
	return out
}

func compileXPaths(exprs ...string) []*xpath.Expr {
	out := make([]*xpath.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = xpath.MustCompile(e)
	}
	return out
}
