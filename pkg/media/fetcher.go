package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/logger"
	"xscraper/pkg/models"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/retry"
	"xscraper/pkg/storage"
)

const defaultExt = ".jpg"

var extPattern = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,5}$`)

// Fetcher downloads media into a content-addressed tree. It never returns an
// error to its caller: a failed download is logged and reported as an empty path.
type Fetcher struct {
	store     *storage.Manager
	client    *http.Client
	limiter   ratelimit.Limiter
	retry     *retry.Config
	userAgent string
	logger    logger.Logger

	requests atomic.Int64
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	Client    *http.Client
	Limiter   ratelimit.Limiter
	Retry     *retry.Config
	UserAgent string
	Timeout   time.Duration
	Logger    logger.Logger
}

// OptionsFromConfig maps the media section of the configuration onto Options
func OptionsFromConfig(cfg config.MediaConfig, userAgent string, log logger.Logger) Options {
	return Options{
		Limiter:   ratelimit.NewTokenBucket(cfg.RequestsPerSecond, cfg.BurstSize),
		Retry:     retry.WithAttempts(cfg.RetryAttempts, log),
		UserAgent: userAgent,
		Timeout:   cfg.DownloadTimeout,
		Logger:    log,
	}
}

// NewFetcher creates a fetcher that writes into store
func NewFetcher(store *storage.Manager, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited()
	}
	if opts.Retry == nil {
		opts.Retry = retry.WithAttempts(1, opts.Logger)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	return &Fetcher{
		store:     store,
		client:    opts.Client,
		limiter:   opts.Limiter,
		retry:     opts.Retry,
		userAgent: opts.UserAgent,
		logger:    opts.Logger.WithField("component", "media"),
	}
}

// FileName returns the content-addressed file name for rawURL.
// The same URL and context id always produce the same name.
func FileName(rawURL, contextID string) string {
	sum := sha256.Sum256([]byte(rawURL))
	name := hex.EncodeToString(sum[:])[:16] + Extension(rawURL)
	if contextID != "" {
		return contextID + "_" + name
	}
	return name
}

// Extension returns the file extension implied by rawURL, defaulting to .jpg.
// A format query parameter is honoured when the path has no extension.
func Extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExt
	}
	if ext := strings.ToLower(path.Ext(u.Path)); extPattern.MatchString(ext) {
		return ext
	}
	if format := u.Query().Get("format"); format != "" {
		if ext := "." + strings.ToLower(format); extPattern.MatchString(ext) {
			return ext
		}
	}
	return defaultExt
}

// Path returns where rawURL would be stored for owner without fetching it
func (f *Fetcher) Path(rawURL, owner, contextID string) string {
	return f.store.Path(owner, FileName(rawURL, contextID))
}

// Requests returns the number of HTTP requests issued so far
func (f *Fetcher) Requests() int64 {
	return f.requests.Load()
}

// Fetch resolves rawURL to a local path under owner's directory, downloading
// it only if it is not already on disk. It returns "" on any failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, owner, contextID string) string {
	if rawURL == "" || owner == "" {
		return ""
	}

	name := FileName(rawURL, contextID)
	if f.store.Exists(owner, name) {
		path := f.store.Path(owner, name)
		logger.LogMediaFetch(f.logger, owner, rawURL, path, true, nil)
		return path
	}

	path, err := retry.DoWithResult(ctx, func(ctx context.Context) (string, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return f.download(ctx, rawURL, owner, name)
	}, f.retry)
	if err != nil {
		logger.LogMediaFetch(f.logger, owner, rawURL, "", false, err)
		return ""
	}

	logger.LogMediaFetch(f.logger, owner, rawURL, path, false, nil)
	return path
}

// FetchAsset is Fetch returning a MediaAsset; ok is false when the download failed
func (f *Fetcher) FetchAsset(ctx context.Context, rawURL, owner, contextID string) (models.MediaAsset, bool) {
	path := f.Fetch(ctx, rawURL, owner, contextID)
	if path == "" {
		return models.MediaAsset{}, false
	}
	return models.MediaAsset{SourceURL: rawURL, LocalPath: path, Owner: owner}, true
}

func (f *Fetcher) download(ctx context.Context, rawURL, owner, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeMedia, "invalid media URL", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*,video/*,*/*;q=0.8")

	f.requests.Add(1)
	resp, err := f.client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeNetwork, "media request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errs.FromStatusCode(resp.StatusCode, fmt.Sprintf("GET %s", rawURL))
	}

	path, _, err := f.store.Save(owner, name, resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeNetwork, "failed to stream media to disk", err)
	}
	return path, nil
}
