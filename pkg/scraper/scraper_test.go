package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/browser"
	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/extract"
	"xscraper/pkg/language"
	"xscraper/pkg/logger"
	"xscraper/pkg/media"
	"xscraper/pkg/models"
	"xscraper/pkg/scroll"
	"xscraper/pkg/storage"
)

const profileURL = "https://x.com/janedoe"

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

// mockFetcher resolves every URL to a fake local path unless it is listed in fail
type mockFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (m *mockFetcher) Fetch(ctx context.Context, url, owner, contextID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)
	if m.fail[url] {
		return ""
	}
	return filepath.Join("media", owner, fmt.Sprintf("%s_%d", contextID, len(m.calls)))
}

func (m *mockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type stubNormalizer struct{}

func (stubNormalizer) Normalize(ctx context.Context, text string) language.Normalized {
	if strings.HasPrefix(text, "Hola") {
		return language.Normalized{Text: "EN: " + text, Language: "es", Translated: true}
	}
	return language.Normalized{Text: text, Language: "en"}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Browser.WaitTimeout = 0
	cfg.Browser.SettleDelay = 0
	cfg.Scroll = config.ScrollConfig{
		MaxStalls:      3,
		MaxIterations:  20,
		BaseDistance:   1500,
		DistanceStep:   100,
		OvershootBack:  500,
		OvershootAhead: 1000,
	}
	cfg.Media.ConcurrentDownloads = 2
	return cfg
}

func newTestScraper(t *testing.T, session browser.Session, opts Options) *Scraper {
	t.Helper()
	opts.Session = session
	s, err := New(testConfig(), opts)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	return s
}

type post struct {
	author string
	text   string
	time   string
	reply  bool
	media  string
}

func article(p post) string {
	var b strings.Builder
	b.WriteString(`<article role="article" data-testid="tweet">`)
	fmt.Fprintf(&b, `<div data-testid="User-Name"><a href="/%s"><span>%s</span></a>`, p.author, p.author)
	if p.time != "" {
		fmt.Fprintf(&b, `<a href="/%s/status/1"><time datetime="%s">t</time></a>`, p.author, p.time)
	}
	b.WriteString(`</div>`)
	if p.reply {
		b.WriteString(`<div><span>Replying to </span><a href="/bob">@bob</a></div>`)
	}
	fmt.Fprintf(&b, `<div><div><div data-testid="tweetText"><span>%s</span></div></div>%s</div>`, p.text, p.media)
	b.WriteString(`</article>`)
	return b.String()
}

func page(posts ...post) string {
	var b strings.Builder
	b.WriteString(`<html><body><h1>Jane Doe</h1><div data-testid="primaryColumn">`)
	for _, p := range posts {
		b.WriteString(article(p))
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

var (
	postA = post{author: "janedoe", text: "First post about the morning run", time: "2024-03-01T12:30:00.000Z"}
	postB = post{author: "janedoe", text: "Second post with some thoughts on books", time: "2024-03-02T09:00:00Z"}
	postC = post{author: "janedoe", text: "Third post, coffee in the sunshine", time: "2024-03-03T18:15:00Z"}
)

func TestNew(t *testing.T) {
	_, err := New(testConfig(), Options{})
	require.Error(t, err)
	assert.True(t, errs.IsFatal(err))

	s, err := New(nil, Options{Session: browser.NewFakeSession(profileURL)})
	require.NoError(t, err)
	assert.Nil(t, s.pool)
	assert.Equal(t, "https://x.com/janedoe", s.ProfileURL("janedoe"))

	s, err = New(testConfig(), Options{Session: browser.NewFakeSession(profileURL), Fetcher: &mockFetcher{}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.pool.Workers())
}

func TestScrapeTweetsDeduplicatesAcrossScrolls(t *testing.T) {
	dupA := postA
	dupA.text = "  First post about the   morning run "
	session := browser.NewFakeSession(profileURL,
		page(postA, postB),
		page(postA, postB, postC, dupA),
	)
	s := newTestScraper(t, session, Options{})

	posts, summary, err := s.ScrapeTweets(context.Background(), "janedoe", 10)
	require.NoError(t, err)

	require.Len(t, posts, 3)
	assert.Equal(t, postA.text, posts[0].Text)
	assert.Equal(t, postB.text, posts[1].Text)
	assert.Equal(t, postC.text, posts[2].Text)

	ids := map[string]bool{}
	for _, p := range posts {
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
	}

	assert.Equal(t, 3, summary.Collected)
	assert.Equal(t, 10, summary.Requested)
	assert.Equal(t, scroll.StopStalled, summary.Scroll.Reason)
	assert.Equal(t, []string{profileURL}, session.Navigations())
	assert.True(t, session.ExpandCalls() > 0)
}

func TestScrapeTweetsStopsAtTarget(t *testing.T) {
	session := browser.NewFakeSession(profileURL, page(postA, postB, postC))
	s := newTestScraper(t, session, Options{})

	posts, summary, err := s.ScrapeTweets(context.Background(), "janedoe", 2)
	require.NoError(t, err)

	require.Len(t, posts, 2)
	assert.Equal(t, postA.text, posts[0].Text)
	assert.Equal(t, postB.text, posts[1].Text)
	assert.Equal(t, scroll.StopTarget, summary.Scroll.Reason)
	assert.Empty(t, session.Scrolls())
}

func TestScrapeTweetsFiltersRepostsRepliesAndShortText(t *testing.T) {
	repost := post{author: "someoneelse", text: "A repost from another account that is long enough"}
	reply := post{author: "JaneDoe", text: "Thanks Bob, that was a great conversation", reply: true}
	short := post{author: "janedoe", text: "gm everyone"}
	session := browser.NewFakeSession(profileURL, page(repost, reply, short, postA))
	s := newTestScraper(t, session, Options{})

	posts, _, err := s.ScrapeTweets(context.Background(), "janedoe", 5)
	require.NoError(t, err)

	require.Len(t, posts, 1)
	assert.Equal(t, postA.text, posts[0].Text)
}

func TestScrapeTweetsAuthorMatchIgnoresCase(t *testing.T) {
	p := postA
	p.author = "JaneDoe"
	session := browser.NewFakeSession(profileURL, page(p))
	s := newTestScraper(t, session, Options{})

	posts, _, err := s.ScrapeTweets(context.Background(), "janedoe", 1)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestScrapeTweetsRecordFields(t *testing.T) {
	tagged := post{
		author: "janedoe",
		text:   "Hola amigos, read https://example.com/a #running #lisboa",
	}
	session := browser.NewFakeSession(profileURL, page(postA, tagged))
	s := newTestScraper(t, session, Options{Normalizer: stubNormalizer{}})

	posts, summary, err := s.ScrapeTweets(context.Background(), "janedoe", 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	first := posts[0]
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), first.PostedAt)
	assert.False(t, first.PostedAtEstimated)
	assert.Equal(t, "en", first.Language)
	assert.Equal(t, first.Text, first.NormalizedText)
	assert.Empty(t, first.MediaURLs)
	assert.Empty(t, first.MediaPaths)

	second := posts[1]
	assert.Equal(t, fixedNow, second.PostedAt)
	assert.True(t, second.PostedAtEstimated)
	assert.Equal(t, "es", second.Language)
	assert.Equal(t, "EN: "+second.Text, second.NormalizedText)
	assert.Equal(t, []string{"#running", "#lisboa"}, second.Hashtags)
	assert.Equal(t, []string{"https://example.com/a"}, second.URLs)

	assert.Equal(t, 1, summary.Translated)
}

func TestScrapeTweetsDownloadsMedia(t *testing.T) {
	media := `<div data-testid="tweetPhoto">` +
		`<img src="https://pbs.twimg.com/media/AAA?format=png&amp;name=small">` +
		`<img src="https://pbs.twimg.com/media/BBB?format=webp&amp;name=medium">` +
		`</div><video src="https://video.twimg.com/ext_tw_video/1/vid.mp4"></video>`
	p := postA
	p.media = media

	large := "https://pbs.twimg.com/media/AAA?format=jpg&name=large"
	broken := "https://pbs.twimg.com/media/BBB?format=jpg&name=large"
	video := "https://video.twimg.com/ext_tw_video/1/vid.mp4"

	fetcher := &mockFetcher{fail: map[string]bool{broken: true}}
	session := browser.NewFakeSession(profileURL, page(p))
	s := newTestScraper(t, session, Options{Fetcher: fetcher})

	posts, summary, err := s.ScrapeTweets(context.Background(), "janedoe", 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	rec := posts[0]
	assert.Equal(t, []string{large, broken, video}, rec.MediaURLs)
	require.Len(t, rec.MediaPaths, 2)
	for _, path := range rec.MediaPaths {
		assert.Contains(t, path, rec.ID)
	}
	assert.ElementsMatch(t, []string{large, broken, video}, fetcher.Calls())
	assert.Equal(t, 3, summary.MediaQueued)
	assert.Equal(t, 2, summary.MediaSaved)
}

func TestScrapeTweetsSkipVideos(t *testing.T) {
	p := postA
	p.media = `<video src="https://video.twimg.com/ext_tw_video/1/vid.mp4"></video>`

	fetcher := &mockFetcher{}
	session := browser.NewFakeSession(profileURL, page(p))
	s := newTestScraper(t, session, Options{Fetcher: fetcher})
	s.config.Media.SkipVideos = true

	posts, _, err := s.ScrapeTweets(context.Background(), "janedoe", 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].MediaURLs)
	assert.Empty(t, fetcher.Calls())
}

func TestScrapeTweetsUndatedPostKeepsMediaAcrossRuns(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("video bytes"))
	}))
	defer server.Close()

	p := post{author: "janedoe", text: "Undated clip from the trail"}
	p.media = fmt.Sprintf(`<video src="%s/clip.mp4"></video>`, server.URL)
	root := t.TempDir()

	run := func(now time.Time) models.PostRecord {
		store, err := storage.NewManager(root)
		require.NoError(t, err)
		fetcher := media.NewFetcher(store, media.Options{})
		s := newTestScraper(t, browser.NewFakeSession(profileURL, page(p)), Options{Fetcher: fetcher})
		s.now = func() time.Time { return now }

		posts, _, err := s.ScrapeTweets(context.Background(), "janedoe", 1)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		return posts[0]
	}

	first := run(fixedNow)
	second := run(fixedNow.Add(48 * time.Hour))

	assert.True(t, first.PostedAtEstimated)
	assert.NotEqual(t, first.PostedAt, second.PostedAt)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, first.MediaPaths, 1)
	assert.Equal(t, first.MediaPaths, second.MediaPaths)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestScrapeTweetsMediaOnly(t *testing.T) {
	withPhoto := postB
	withPhoto.media = `<div data-testid="tweetPhoto"><img src="https://pbs.twimg.com/media/CCC?format=jpg&amp;name=small"></div>`
	withVideo := postC
	withVideo.media = `<video src="https://video.twimg.com/ext_tw_video/2/vid.mp4"></video>`

	session := browser.NewFakeSession(profileURL, page(postA, withPhoto, withVideo))
	s := newTestScraper(t, session, Options{})
	s.config.Scrape.MediaOnly = true
	s.config.Media.SkipVideos = true

	posts, summary, err := s.ScrapeTweets(context.Background(), "janedoe", 3)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, postB.text, posts[0].Text)
	assert.Equal(t, []string{"https://pbs.twimg.com/media/CCC?format=jpg&name=large"}, posts[0].MediaURLs)
	assert.Equal(t, 1, summary.Collected)
}

func TestScrapeTweetsAccountMissing(t *testing.T) {
	missing := `<html><body><span>This account doesn’t exist</span></body></html>`
	session := browser.NewFakeSession(profileURL, missing)
	s := newTestScraper(t, session, Options{})

	posts, summary, err := s.ScrapeTweets(context.Background(), "janedoe", 5)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errs.ErrNotFound))
	assert.Empty(t, posts)
	assert.Equal(t, 0, summary.Collected)
}

func TestScrapeTweetsNoArticlesIsEmptySuccess(t *testing.T) {
	log := logger.NewTestLogger()
	session := browser.NewFakeSession(profileURL, page())
	session.Missing[extract.ArticleSelector] = true
	s := newTestScraper(t, session, Options{Logger: log})

	posts, summary, err := s.ScrapeTweets(context.Background(), "janedoe", 5)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
	assert.Equal(t, scroll.StopStalled, summary.Scroll.Reason)
	assert.True(t, log.HasMessage("Posts did not load in time"))
}

func TestScrapeTweetsNavigationFailure(t *testing.T) {
	session := browser.NewFakeSession(profileURL, page(postA))
	session.NavigateErr = errs.New(errs.ErrorTypeNavigation, "net::ERR_NAME_NOT_RESOLVED")
	s := newTestScraper(t, session, Options{})

	_, _, err := s.ScrapeTweets(context.Background(), "janedoe", 5)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNavigation, errs.TypeOf(err))
}

func TestScrapeTweetsCancelled(t *testing.T) {
	session := browser.NewFakeSession(profileURL, page(postA))
	s := newTestScraper(t, session, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	posts, _, err := s.ScrapeTweets(ctx, "janedoe", 5)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Empty(t, posts)
}

func TestScrapeTweetsZeroMax(t *testing.T) {
	session := browser.NewFakeSession(profileURL, page(postA))
	s := newTestScraper(t, session, Options{})

	posts, summary, err := s.ScrapeTweets(context.Background(), "janedoe", 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, scroll.StopTarget, summary.Scroll.Reason)
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "extract", "testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestScrapeProfile(t *testing.T) {
	fetcher := &mockFetcher{}
	session := browser.NewFakeSession(profileURL, loadFixture(t, "profile.html"))
	s := newTestScraper(t, session, Options{Fetcher: fetcher})

	res := s.ScrapeProfile(context.Background(), "janedoe")
	require.True(t, res.IsFound(), "kind %s: %v", res.Kind, res.Err)

	rec := res.Value
	assert.Equal(t, "janedoe", rec.Username)
	assert.Equal(t, "Jane Doe", rec.DisplayName)
	assert.Equal(t, int64(1200000), rec.Followers)
	assert.Equal(t, fixedNow, rec.ScrapedAt)
	assert.NotEmpty(t, rec.ProfileImage)
	assert.NotEmpty(t, rec.BannerImage)
	assert.ElementsMatch(t, []string{rec.ProfileImageURL, rec.BannerImageURL}, fetcher.Calls())
}

func TestScrapeProfileImageFailureIsNotFatal(t *testing.T) {
	fetcher := &mockFetcher{fail: map[string]bool{
		"https://pbs.twimg.com/profile_images/123/abc_400x400.jpg": true,
	}}
	session := browser.NewFakeSession(profileURL, loadFixture(t, "profile.html"))
	s := newTestScraper(t, session, Options{Fetcher: fetcher})

	res := s.ScrapeProfile(context.Background(), "janedoe")
	require.True(t, res.IsFound())
	assert.Empty(t, res.Value.ProfileImage)
	assert.NotEmpty(t, res.Value.BannerImage)
}

func TestScrapeProfileNotFound(t *testing.T) {
	t.Run("page says account does not exist", func(t *testing.T) {
		session := browser.NewFakeSession(profileURL, loadFixture(t, "missing.html"))
		s := newTestScraper(t, session, Options{})

		res := s.ScrapeProfile(context.Background(), "janedoe")
		assert.True(t, res.IsNotFound())

		_, err := res.Unwrap()
		assert.True(t, stderrors.Is(err, errs.ErrNotFound))
	})

	t.Run("heading never appears", func(t *testing.T) {
		session := browser.NewFakeSession(profileURL, page())
		session.Missing[extract.HeadingSelector] = true
		s := newTestScraper(t, session, Options{})

		res := s.ScrapeProfile(context.Background(), "janedoe")
		assert.True(t, res.IsNotFound())
	})
}

func TestScrapeProfileTransient(t *testing.T) {
	session := browser.NewFakeSession(profileURL, page())
	session.NavigateErr = errs.New(errs.ErrorTypeNavigation, "connection reset")
	s := newTestScraper(t, session, Options{})

	res := s.ScrapeProfile(context.Background(), "janedoe")
	assert.Equal(t, errs.KindTransientError, res.Kind)
	assert.Error(t, res.Err)
}

func TestClose(t *testing.T) {
	session := browser.NewFakeSession(profileURL)
	s := newTestScraper(t, session, Options{})
	require.NoError(t, s.Close())
	assert.True(t, session.Closed())
}
