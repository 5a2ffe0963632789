package browser

import (
	"context"
	"time"
)

// Session is one exclusively owned browser tab. Implementations are not safe
// for concurrent use; a scrape drives its session from a single goroutine.
type Session interface {
	// Navigate loads url and waits the configured settle delay
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector matches or timeout elapses
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// HTML returns the current document, including content rendered by scripts
	HTML(ctx context.Context) (string, error)
	ScrollBy(ctx context.Context, dy int) error
	ScrollToBottom(ctx context.Context) error
	// Position reports the scroll offset and document height
	Position(ctx context.Context) (Position, error)
	// ClickFirstVisible clicks the first visible element matched by any of
	// xpaths, trying them in order
	ClickFirstVisible(ctx context.Context, xpaths []string) (bool, error)
	// ClickAll clicks every element matched by any of xpaths
	ClickAll(ctx context.Context, xpaths []string) (int, error)
	Close() error
}

// Position is the page's vertical scroll state
type Position struct {
	Offset   int
	Height   int
	Viewport int
}

// AtBottom reports whether the viewport reaches the end of the document
func (p Position) AtBottom() bool {
	return p.Height > 0 && p.Offset+p.Viewport >= p.Height
}
