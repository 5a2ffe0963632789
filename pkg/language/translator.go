package language

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ysmood/gson"
	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/logger"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/retry"
)

// Translator translates one bounded piece of text
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// HTTPTranslator calls the public gtx translation endpoint
type HTTPTranslator struct {
	endpoint  string
	client    *http.Client
	limiter   ratelimit.Limiter
	retry     *retry.Config
	userAgent string
}

// NewHTTPTranslator builds a translator from the translate config section
func NewHTTPTranslator(cfg config.TranslateConfig, userAgent string, log logger.Logger) *HTTPTranslator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := retry.WithAttempts(cfg.RetryAttempts, log)
	if cfg.RetryAttempts <= 0 {
		rc.MaxAttempts = 1
	}
	return &HTTPTranslator{
		endpoint:  cfg.Endpoint,
		client:    &http.Client{Timeout: timeout},
		limiter:   ratelimit.NewTokenBucket(cfg.RequestsPerSecond, 1),
		retry:     rc,
		userAgent: userAgent,
	}
}

// Translate sends text in one request. Callers are responsible for chunking.
func (t *HTTPTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	if from == "" {
		from = "auto"
	}
	return retry.DoWithResult(ctx, func(ctx context.Context) (string, error) {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return t.translateOnce(ctx, text, from, to)
	}, t.retry)
}

func (t *HTTPTranslator) translateOnce(ctx context.Context, text, from, to string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", from)
	q.Set("tl", to)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeTranslation, "invalid translation endpoint", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeNetwork, "translation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.FromStatusCode(resp.StatusCode, "translation endpoint")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeNetwork, "failed to read translation response", err)
	}

	translated, ok := ParseGTXResponse(body)
	if !ok {
		return "", errs.New(errs.ErrorTypeTranslation, fmt.Sprintf("unexpected translation response (%d bytes)", len(body)))
	}
	return translated, nil
}

// ParseGTXResponse extracts the translated text from a gtx response of the form
// [[["translated","original",...],...],...]
func ParseGTXResponse(body []byte) (string, bool) {
	root := gson.New(body)
	top := root.Arr()
	if len(top) == 0 {
		return "", false
	}

	var b strings.Builder
	segments := top[0].Arr()
	for _, seg := range segments {
		parts := seg.Arr()
		if len(parts) == 0 || parts[0].Nil() {
			continue
		}
		b.WriteString(parts[0].Str())
	}

	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
