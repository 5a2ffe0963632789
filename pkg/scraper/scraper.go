package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"xscraper/internal/downloader"
	"xscraper/pkg/browser"
	"xscraper/pkg/config"
	"xscraper/pkg/dedup"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/extract"
	"xscraper/pkg/language"
	"xscraper/pkg/logger"
	"xscraper/pkg/media"
	"xscraper/pkg/models"
	"xscraper/pkg/retry"
	"xscraper/pkg/scroll"
	"xscraper/pkg/storage"
)

// Scraper drives one browser session over profile pages. A Scraper is not safe
// for concurrent use: the session is a single tab.
type Scraper struct {
	session    browser.Session
	extractor  *extract.Extractor
	fetcher    MediaFetcher
	pool       *downloader.WorkerPool
	normalizer TextNormalizer
	config     *config.Config
	logger     logger.Logger
	now        func() time.Time
}

// Options carries the collaborators of a Scraper. A nil Fetcher disables
// media download and a nil Normalizer keeps post text as extracted.
type Options struct {
	Session    browser.Session
	Fetcher    MediaFetcher
	Normalizer TextNormalizer
	Logger     logger.Logger
}

// Summary describes one posts run
type Summary struct {
	Username    string         `json:"username"`
	Requested   int            `json:"requested"`
	Collected   int            `json:"collected"`
	Scroll      scroll.Outcome `json:"scroll"`
	MediaQueued int            `json:"media_queued"`
	MediaSaved  int            `json:"media_saved"`
	Translated  int            `json:"translated"`
	StartedAt   time.Time      `json:"started_at"`
	Elapsed     string         `json:"elapsed"`
	Duration    time.Duration  `json:"-"`
}

// New creates a scraper around an already open session
func New(cfg *config.Config, opts Options) (*Scraper, error) {
	if opts.Session == nil {
		return nil, errs.NewSetupError("scraper requires a browser session", nil)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &Scraper{
		session:    opts.Session,
		extractor:  extract.New(cfg.Scrape.BaseURL, log),
		fetcher:    opts.Fetcher,
		normalizer: opts.Normalizer,
		config:     cfg,
		logger:     log.WithField("component", "scraper"),
		now:        time.Now,
	}
	if s.fetcher != nil {
		s.pool = downloader.NewWorkerPool(cfg.Media.ConcurrentDownloads, s.fetcher, log)
	}
	return s, nil
}

// Open launches a browser and wires the media and translation stacks from cfg
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	session, err := browser.Open(ctx, cfg.Browser, log)
	if err != nil {
		return nil, err
	}

	opts := Options{Session: session, Logger: log}

	if cfg.Media.Enabled {
		store, err := storage.NewManager(cfg.Media.RootDirectory)
		if err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("failed to create media storage: %w", err)
		}
		opts.Fetcher = media.NewFetcher(store, media.OptionsFromConfig(cfg.Media, cfg.Browser.UserAgent, log))
	}

	var translator language.Translator
	if cfg.Translate.Enabled {
		translator = language.NewHTTPTranslator(cfg.Translate, cfg.Browser.UserAgent, log)
	}
	opts.Normalizer = language.NewNormalizer(
		language.NewDetector(),
		translator,
		cfg.Translate.TargetLanguage,
		cfg.Translate.MaxChunkSize,
		log,
	)

	return New(cfg, opts)
}

// Close releases the browser session
func (s *Scraper) Close() error {
	return s.session.Close()
}

// ProfileURL returns the page of username on the configured site
func (s *Scraper) ProfileURL(username string) string {
	return strings.TrimRight(s.config.Scrape.BaseURL, "/") + "/" + username
}

// ScrapeProfile reads the profile header of username. A page that states the
// account does not exist, or that never renders a heading, is NotFound.
// Failing to download the avatar or banner leaves the local path empty.
func (s *Scraper) ScrapeProfile(ctx context.Context, username string) errs.Result[models.ProfileRecord] {
	log := s.logger.WithField("username", username)
	log.Info("Scraping profile")

	if res, ok := s.open(ctx, username, extract.HeadingSelector); !ok {
		return errs.Result[models.ProfileRecord]{Kind: res.Kind, Reason: res.Reason, Err: res.Err}
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return errs.Transient[models.ProfileRecord](err)
	}

	rec := s.extractor.Profile(snap, username)
	rec.ScrapedAt = s.now().UTC()

	if s.fetcher != nil {
		g, gctx := errgroup.WithContext(ctx)
		if rec.ProfileImageURL != "" {
			g.Go(func() error {
				rec.ProfileImage = s.fetcher.Fetch(gctx, rec.ProfileImageURL, username, "")
				return nil
			})
		}
		if rec.BannerImageURL != "" {
			g.Go(func() error {
				rec.BannerImage = s.fetcher.Fetch(gctx, rec.BannerImageURL, username, "")
				return nil
			})
		}
		_ = g.Wait()
	}

	log.InfoWithFields("Profile scraped", map[string]interface{}{
		"display_name": rec.DisplayName,
		"followers":    rec.Followers,
		"following":    rec.Following,
	})
	return errs.Found(rec)
}

// ScrapeTweets collects up to max original posts by username, newest first as
// the timeline renders them. Reposts of other authors, replies, short texts and
// repeated texts are skipped. Reaching a scroll bound with fewer posts is not
// an error; only a missing account, a failed navigation or ctx ending is.
func (s *Scraper) ScrapeTweets(ctx context.Context, username string, max int) ([]models.PostRecord, Summary, error) {
	if max < 0 {
		max = 0
	}
	start := s.now()
	summary := Summary{Username: username, Requested: max, StartedAt: start.UTC()}
	finish := func(posts []models.PostRecord, err error) ([]models.PostRecord, Summary, error) {
		summary.Collected = len(posts)
		summary.Duration = time.Since(start)
		summary.Elapsed = summary.Duration.Round(time.Millisecond).String()
		return posts, summary, err
	}

	log := s.logger.WithField("username", username)
	log.InfoWithFields("Scraping posts", map[string]interface{}{"max": max})

	posts := make([]models.PostRecord, 0, max)
	res, ok := s.open(ctx, username, extract.ArticleSelector)
	if !ok {
		switch res.Kind {
		case errs.KindNotFound:
			if res.Reason == reasonNotExists {
				return finish(posts, errs.NewNotFound(res.Reason))
			}
			log.Warn("Posts did not load in time")
			summary.Scroll = scroll.Outcome{Reason: scroll.StopStalled}
			return finish(posts, nil)
		default:
			return finish(posts, res.Err)
		}
	}

	tracker := dedup.NewTracker(s.config.Scrape.MinTextLength)
	controller := scroll.New(s.session, s.config.Scroll, s.config.Browser.WaitTimeout, s.logger)

	outcome, err := controller.Run(ctx, username, max, func(ctx context.Context, remaining int) (int, error) {
		batch, err := s.scan(ctx, username, remaining, tracker, &summary)
		if err != nil {
			return 0, err
		}
		posts = append(posts, batch...)
		return len(batch), nil
	})
	summary.Scroll = outcome

	log.InfoWithFields("Posts scraped", map[string]interface{}{
		"collected":   len(posts),
		"stop_reason": string(outcome.Reason),
	})
	return finish(posts, err)
}

const reasonNotExists = "account does not exist"

// open navigates to the profile and waits for selector. ok is false when the
// page could not be used; the result then says why.
func (s *Scraper) open(ctx context.Context, username, selector string) (errs.Result[struct{}], bool) {
	if err := s.session.Navigate(ctx, s.ProfileURL(username)); err != nil {
		return errs.Transient[struct{}](err), false
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return errs.Transient[struct{}](err), false
	}
	if extract.NotExists(snap) {
		s.logger.WithField("username", username).Warn("Account does not exist")
		return errs.Missing[struct{}](reasonNotExists), false
	}

	if err := s.session.WaitFor(ctx, selector, s.config.Browser.WaitTimeout); err != nil {
		if ctx.Err() != nil {
			return errs.Transient[struct{}](ctx.Err()), false
		}
		if errors.Is(err, errs.ErrTimeout) {
			return errs.Missing[struct{}]("profile page did not load"), false
		}
		return errs.Transient[struct{}](err), false
	}
	return errs.Found(struct{}{}), true
}

func (s *Scraper) snapshot(ctx context.Context) (*extract.Snapshot, error) {
	html, err := s.session.HTML(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := extract.ParseString(html)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeExtraction, "failed to parse page", err)
	}
	return snap, nil
}

// draft is an accepted post whose media has not been resolved yet
type draft struct {
	id        string
	text      string
	norm      language.Normalized
	mediaURLs []string
	postedAt  time.Time
	estimated bool
}

// scan reads the rendered timeline once and returns the newly accepted posts
func (s *Scraper) scan(ctx context.Context, username string, remaining int, tracker *dedup.Tracker, summary *Summary) ([]models.PostRecord, error) {
	if n, err := s.session.ClickAll(ctx, extract.ShowMoreXPaths); err != nil {
		return nil, err
	} else if n > 0 {
		if err := retry.Wait(ctx, s.config.Scroll.ExpandDelay); err != nil {
			return nil, err
		}
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var drafts []draft
	for _, c := range s.extractor.Posts(snap) {
		if len(drafts) >= remaining {
			break
		}
		if !c.AuthoredBy(username) || c.IsReply {
			continue
		}
		if s.config.Scrape.MediaOnly && len(c.MediaURLs(!s.config.Media.SkipVideos)) == 0 {
			continue
		}
		if !tracker.Accept(c.Text) {
			continue
		}
		d := s.draft(ctx, c)
		if d.norm.Translated {
			summary.Translated++
		}
		drafts = append(drafts, d)
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	return s.finalize(ctx, username, drafts, summary), nil
}

func (s *Scraper) draft(ctx context.Context, c extract.PostCandidate) draft {
	postedAt, estimated := c.PostedAt, !c.HasTime
	if estimated {
		postedAt = s.now().UTC()
	}

	norm := language.Normalized{Text: c.Text}
	if s.normalizer != nil {
		norm = s.normalizer.Normalize(ctx, c.Text)
	}

	return draft{
		id:        models.RecordID(c.Text, postedAt, estimated),
		text:      c.Text,
		norm:      norm,
		mediaURLs: c.MediaURLs(!s.config.Media.SkipVideos),
		postedAt:  postedAt,
		estimated: estimated,
	}
}

// finalize downloads the batch's media through the worker pool and builds the
// immutable records in acceptance order
func (s *Scraper) finalize(ctx context.Context, username string, drafts []draft, summary *Summary) []models.PostRecord {
	paths := make([][]string, len(drafts))

	if s.pool != nil {
		var jobs []downloader.Job
		var owners []int
		for i, d := range drafts {
			for _, u := range d.mediaURLs {
				jobs = append(jobs, downloader.Job{URL: u, Owner: username, ContextID: d.id})
				owners = append(owners, i)
			}
		}
		summary.MediaQueued += len(jobs)

		for i, res := range s.pool.Process(ctx, jobs) {
			if res.Success {
				paths[owners[i]] = append(paths[owners[i]], res.Path)
				summary.MediaSaved++
			}
		}
	}

	records := make([]models.PostRecord, len(drafts))
	for i, d := range drafts {
		records[i] = models.NewPostRecord(
			d.text,
			d.norm.Text,
			d.norm.Language,
			d.mediaURLs,
			paths[i],
			extract.Hashtags(d.text),
			extract.URLs(d.text),
			d.postedAt,
			d.estimated,
		)
	}
	return records
}
