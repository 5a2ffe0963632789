// Package scroll drives an infinite-scroll timeline until enough items were
// collected or the page stops producing new ones.
package scroll

import (
	"context"
	"time"

	"xscraper/pkg/browser"
	"xscraper/pkg/config"
	"xscraper/pkg/extract"
	"xscraper/pkg/logger"
	"xscraper/pkg/retry"
)

// State is the controller's position in the crawl loop
type State int

const (
	Scanning State = iota
	Scrolling
	Retrying
	Stalled
	Done
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Scrolling:
		return "scrolling"
	case Retrying:
		return "retrying"
	case Stalled:
		return "stalled"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// StopReason says which bound ended the loop
type StopReason string

const (
	StopTarget     StopReason = "target"
	StopStalled    StopReason = "stalled"
	StopIterations StopReason = "iterations"
	StopCancelled  StopReason = "cancelled"
)

// Scanner reads the currently rendered items and returns how many new ones it
// accepted. remaining is how many more the caller wants.
type Scanner func(ctx context.Context, remaining int) (int, error)

// Outcome summarises a finished run
type Outcome struct {
	Reason     StopReason `json:"stop_reason"`
	Collected  int        `json:"collected"`
	Iterations int        `json:"iterations"`
	Stalls     int        `json:"stalls"`
	Retries    int        `json:"retries"`
}

// Controller owns the scroll loop for one session. It is not reusable across
// concurrent runs.
type Controller struct {
	session     browser.Session
	cfg         config.ScrollConfig
	waitTimeout time.Duration
	retryXPaths []string
	logger      logger.Logger

	state      State
	stalls     int
	iterations int
	retries    int
}

// New creates a controller. waitTimeout bounds the wait for content after a
// retry affordance was clicked.
func New(session browser.Session, cfg config.ScrollConfig, waitTimeout time.Duration, log logger.Logger) *Controller {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.MaxStalls <= 0 {
		cfg.MaxStalls = 8
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 50
	}
	return &Controller{
		session:     session,
		cfg:         cfg,
		waitTimeout: waitTimeout,
		retryXPaths: extract.RetryXPaths,
		logger:      log.WithField("component", "scroll"),
	}
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Run alternates scans and scrolls until target items were collected, the
// stall bound or the iteration bound is reached, or ctx is done. Whichever
// bound triggers first wins. Partial results are not an error; only the
// context's error is returned, together with the outcome so far.
func (c *Controller) Run(ctx context.Context, username string, target int, scan Scanner) (Outcome, error) {
	c.state, c.stalls, c.iterations, c.retries = Scanning, 0, 0, 0
	collected := 0

	finish := func(reason StopReason, err error) (Outcome, error) {
		c.state = Done
		out := Outcome{
			Reason:     reason,
			Collected:  collected,
			Iterations: c.iterations,
			Stalls:     c.stalls,
			Retries:    c.retries,
		}
		c.logger.WithFields(map[string]interface{}{
			"username":    username,
			"stop_reason": string(reason),
			"collected":   collected,
			"iterations":  c.iterations,
		}).Info("Scroll finished")
		return out, err
	}

	for {
		switch {
		case ctx.Err() != nil:
			return finish(StopCancelled, ctx.Err())
		case collected >= target:
			return finish(StopTarget, nil)
		case c.stalls >= c.cfg.MaxStalls:
			return finish(StopStalled, nil)
		case c.iterations >= c.cfg.MaxIterations:
			return finish(StopIterations, nil)
		}

		c.state = Scanning
		n, err := scan(ctx, target-collected)
		if err != nil {
			if ctx.Err() != nil {
				return finish(StopCancelled, ctx.Err())
			}
			c.logger.WithError(err).Warn("Scan failed, counting as stall")
			n = 0
		}
		collected += n

		if n > 0 {
			c.stalls = 0
		} else {
			c.stalls++
			c.state = Stalled
		}
		logger.LogScrollProgress(c.logger, username, c.state.String(), collected, target, c.stalls, c.iterations)

		if collected >= target {
			return finish(StopTarget, nil)
		}

		if err := c.advance(ctx); err != nil {
			return finish(StopCancelled, err)
		}
		c.iterations++
	}
}

// advance recovers from a stall if the page offers a retry, then scrolls.
// Only context errors are returned; page errors are logged and skipped.
func (c *Controller) advance(ctx context.Context) error {
	if c.state == Stalled {
		if err := c.tryRetry(ctx, c.retryXPaths); err != nil {
			return err
		}
	}

	c.state = Scrolling
	distance := c.cfg.BaseDistance + c.iterations*c.cfg.DistanceStep
	if err := c.scrollBy(ctx, distance); err != nil {
		return err
	}
	if err := retry.Wait(ctx, c.cfg.ScrollDelay); err != nil {
		return err
	}

	if c.stalls >= 2 {
		return c.overshoot(ctx)
	}
	return nil
}

func (c *Controller) tryRetry(ctx context.Context, xpaths []string) error {
	clicked, err := c.session.ClickFirstVisible(ctx, xpaths)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).Debug("Retry lookup failed")
		return nil
	}
	if !clicked {
		return nil
	}

	c.state = Retrying
	c.retries++
	c.logger.WithField("retries", c.retries).Info("Clicked retry on timeline")

	if err := retry.Wait(ctx, c.cfg.RetryDelay); err != nil {
		return err
	}
	if err := retry.Wait(ctx, c.cfg.RetrySettle); err != nil {
		return err
	}
	if err := c.session.WaitFor(ctx, extract.ArticleSelector, c.waitTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("Content still not loaded after retry")
	}
	return nil
}

// overshoot jumps to the end of the document, backs up, and moves forward
// again so that a lazily loading list sees a fresh intersection
func (c *Controller) overshoot(ctx context.Context) error {
	if err := c.tryRetry(ctx, c.retryXPaths[:2]); err != nil {
		return err
	}

	if err := c.session.ScrollToBottom(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).Debug("Scroll to bottom failed")
	}
	if err := retry.Wait(ctx, c.cfg.OvershootSettle); err != nil {
		return err
	}
	if err := c.scrollBy(ctx, -c.cfg.OvershootBack); err != nil {
		return err
	}
	if err := retry.Wait(ctx, c.cfg.ExpandDelay); err != nil {
		return err
	}
	if err := c.scrollBy(ctx, c.cfg.OvershootAhead); err != nil {
		return err
	}
	if err := retry.Wait(ctx, c.cfg.OvershootSettle); err != nil {
		return err
	}

	if pos, err := c.session.Position(ctx); err == nil {
		c.logger.WithFields(map[string]interface{}{
			"offset":    pos.Offset,
			"height":    pos.Height,
			"at_bottom": pos.AtBottom(),
		}).Debug("Overshoot settled")
	}
	return nil
}

func (c *Controller) scrollBy(ctx context.Context, dy int) error {
	if dy == 0 {
		return nil
	}
	if err := c.session.ScrollBy(ctx, dy); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).WithField("distance", dy).Debug("Scroll failed")
	}
	return nil
}
