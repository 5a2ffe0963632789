package browser

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/logger"
	"xscraper/pkg/retry"
)

// RodSession drives a local Chromium through the DevTools protocol
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	settle   time.Duration
	logger   logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// binarySource is one way of finding a browser executable
type binarySource struct {
	name    string
	resolve func() (string, bool, error)
}

// ResolveBinary tries, in order: the configured path, a system install, and a
// managed download when allowed. The first source yielding a path wins.
func ResolveBinary(cfg config.BrowserConfig, log logger.Logger) (string, error) {
	sources := []binarySource{
		{"configured", func() (string, bool, error) {
			if cfg.Bin == "" {
				return "", false, nil
			}
			if _, err := os.Stat(cfg.Bin); err != nil {
				return "", false, err
			}
			return cfg.Bin, true, nil
		}},
		{"system", func() (string, bool, error) {
			p, ok := launcher.LookPath()
			return p, ok, nil
		}},
		{"download", func() (string, bool, error) {
			if !cfg.DownloadBrowser {
				return "", false, nil
			}
			p, err := launcher.NewBrowser().Get()
			return p, err == nil, err
		}},
	}

	var tried []error
	for _, src := range sources {
		p, ok, err := src.resolve()
		if ok {
			log.WithFields(map[string]interface{}{"source": src.name, "bin": p}).Debug("Browser binary resolved")
			return p, nil
		}
		if err != nil {
			tried = append(tried, fmt.Errorf("%s: %w", src.name, err))
		}
	}
	return "", errs.NewSetupError("no usable browser binary found", stderrors.Join(tried...))
}

// Open launches a browser and prepares a single tab with the stealth script,
// user agent and viewport applied. Any failure is a setup error and leaves no
// process behind.
func Open(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*RodSession, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "browser")

	bin, err := ResolveBinary(cfg, log)
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("no-first-run"))
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, errs.NewSetupError("failed to launch browser", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, errs.NewSetupError("failed to connect to browser", err)
	}

	s := &RodSession{launcher: l, browser: b, settle: cfg.SettleDelay, logger: log}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, errs.NewSetupError("failed to open tab", err)
	}
	s.page = page

	if err := s.preparePage(cfg); err != nil {
		_ = s.Close()
		return nil, errs.NewSetupError("failed to prepare tab", err)
	}

	logger.LogComponentStart(log, "browser", map[string]interface{}{
		"bin":      bin,
		"headless": cfg.Headless,
	})
	return s, nil
}

func (s *RodSession) preparePage(cfg config.BrowserConfig) error {
	if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
		return err
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		return err
	}

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		return s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.WindowWidth,
			Height:            cfg.WindowHeight,
			DeviceScaleFactor: 1,
		})
	}
	return nil
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	if err := s.page.Context(ctx).Navigate(url); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Wrap(errs.ErrorTypeNavigation, "failed to open "+url, err)
	}
	s.logger.WithField("url", url).Debug("Navigated")
	return retry.Wait(ctx, s.settle)
}

func (s *RodSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	if _, err := p.Element(selector); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.NewTimeout(fmt.Sprintf("waiting for %q", selector), err)
	}
	return nil
}

func (s *RodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeExtraction, "failed to read page", err)
	}
	return html, nil
}

func (s *RodSession) ScrollBy(ctx context.Context, dy int) error {
	_, err := s.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (s *RodSession) ScrollToBottom(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (s *RodSession) Position(ctx context.Context) (Position, error) {
	res, err := s.page.Context(ctx).Eval(`() => ({
		offset: Math.round(window.scrollY),
		height: document.body ? document.body.scrollHeight : 0,
		viewport: window.innerHeight,
	})`)
	if err != nil {
		return Position{}, err
	}
	return Position{
		Offset:   res.Value.Get("offset").Int(),
		Height:   res.Value.Get("height").Int(),
		Viewport: res.Value.Get("viewport").Int(),
	}, nil
}

func (s *RodSession) ClickFirstVisible(ctx context.Context, xpaths []string) (bool, error) {
	p := s.page.Context(ctx)
	for _, xp := range xpaths {
		has, el, err := p.HasX(xp)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			continue
		}
		if !has {
			continue
		}
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		if _, err := el.Eval(`() => this.click()`); err != nil {
			continue
		}
		s.logger.WithField("xpath", xp).Debug("Clicked element")
		return true, nil
	}
	return false, nil
}

func (s *RodSession) ClickAll(ctx context.Context, xpaths []string) (int, error) {
	p := s.page.Context(ctx)
	clicked := 0
	for _, xp := range xpaths {
		els, err := p.ElementsX(xp)
		if err != nil {
			if ctx.Err() != nil {
				return clicked, ctx.Err()
			}
			continue
		}
		for _, el := range els {
			if _, err := el.Eval(`() => this.click()`); err == nil {
				clicked++
			}
		}
	}
	return clicked, nil
}

// Close shuts the browser down and always kills the launched process
func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		logger.LogComponentStop(s.logger, "browser", "closed")
	})
	return s.closeErr
}
