package browser

import (
	"context"
	"sync"
	"time"

	errs "xscraper/pkg/errors"
)

// FakeSession is a scripted Session for tests. Each URL maps to a sequence of
// documents; every scroll advances to the next one and the last repeats.
type FakeSession struct {
	mu sync.Mutex

	// Routes maps a URL to the documents it renders as the page is scrolled
	Routes map[string][]string
	// Missing lists selectors that never appear, so WaitFor times out
	Missing map[string]bool
	// NavigateErr is returned by every Navigate call when set
	NavigateErr error
	// RetryVisible makes ClickFirstVisible report a click
	RetryVisible bool

	url         string
	frame       int
	offset      int
	navigations []string
	scrolls     []int
	toBottom    int
	retryClicks int
	expandCalls int
	closed      bool
}

// NewFakeSession creates a fake rendering frames at url
func NewFakeSession(url string, frames ...string) *FakeSession {
	return &FakeSession{Routes: map[string][]string{url: frames}, Missing: map[string]bool{}}
}

func (f *FakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.navigations = append(f.navigations, url)
	if f.NavigateErr != nil {
		return f.NavigateErr
	}
	f.url, f.frame, f.offset = url, 0, 0
	return nil
}

func (f *FakeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Missing[selector] {
		return errs.NewTimeout("waiting for "+selector, context.DeadlineExceeded)
	}
	return nil
}

func (f *FakeSession) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	frames := f.Routes[f.url]
	if len(frames) == 0 {
		return "<html><body></body></html>", nil
	}
	if f.frame >= len(frames) {
		return frames[len(frames)-1], nil
	}
	return frames[f.frame], nil
}

func (f *FakeSession) ScrollBy(ctx context.Context, dy int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.scrolls = append(f.scrolls, dy)
	f.offset += dy
	if dy > 0 {
		f.frame++
	}
	return nil
}

func (f *FakeSession) ScrollToBottom(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.toBottom++
	f.frame++
	return nil
}

func (f *FakeSession) Position(ctx context.Context) (Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Position{Offset: f.offset, Height: f.offset + 1000, Viewport: 800}, nil
}

func (f *FakeSession) ClickFirstVisible(ctx context.Context, xpaths []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !f.RetryVisible {
		return false, nil
	}
	f.retryClicks++
	return true, nil
}

func (f *FakeSession) ClickAll(ctx context.Context, xpaths []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.expandCalls++
	return 0, nil
}

func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Navigations returns every URL passed to Navigate
func (f *FakeSession) Navigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigations...)
}

// Scrolls returns every ScrollBy distance in call order
func (f *FakeSession) Scrolls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.scrolls...)
}

func (f *FakeSession) ScrollsToBottom() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toBottom
}

func (f *FakeSession) RetryClicks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retryClicks
}

func (f *FakeSession) ExpandCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expandCalls
}

func (f *FakeSession) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
