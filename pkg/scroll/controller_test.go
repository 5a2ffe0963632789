package scroll

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xscraper/pkg/browser"
	"xscraper/pkg/config"
	"xscraper/pkg/logger"
)

const profileURL = "https://x.com/janedoe"

func testConfig(maxStalls, maxIterations int) config.ScrollConfig {
	return config.ScrollConfig{
		MaxStalls:      maxStalls,
		MaxIterations:  maxIterations,
		BaseDistance:   1500,
		DistanceStep:   100,
		OvershootBack:  500,
		OvershootAhead: 1000,
	}
}

func newSession(t *testing.T) *browser.FakeSession {
	t.Helper()
	f := browser.NewFakeSession(profileURL, "<html></html>")
	require.NoError(t, f.Navigate(context.Background(), profileURL))
	return f
}

func never(context.Context, int) (int, error) { return 0, nil }

func TestRunStopsOnStalls(t *testing.T) {
	f := newSession(t)
	c := New(f, testConfig(8, 50), 0, nil)

	scans := 0
	out, err := c.Run(context.Background(), "janedoe", 10, func(ctx context.Context, remaining int) (int, error) {
		scans++
		return 0, nil
	})

	require.NoError(t, err)
	assert.Equal(t, StopStalled, out.Reason)
	assert.Equal(t, 8, scans)
	assert.Equal(t, 8, out.Stalls)
	assert.Equal(t, 0, out.Collected)
	assert.Equal(t, Done, c.State())
}

func TestRunStopsOnIterationBound(t *testing.T) {
	f := newSession(t)
	c := New(f, testConfig(100, 5), 0, nil)

	scans := 0
	out, err := c.Run(context.Background(), "janedoe", 10, func(ctx context.Context, remaining int) (int, error) {
		scans++
		return 0, nil
	})

	require.NoError(t, err)
	assert.Equal(t, StopIterations, out.Reason)
	assert.Equal(t, 5, scans)
	assert.Equal(t, 5, out.Iterations)
}

func TestRunStopsOnTarget(t *testing.T) {
	f := newSession(t)
	c := New(f, testConfig(8, 50), 0, nil)

	var budgets []int
	out, err := c.Run(context.Background(), "janedoe", 5, func(ctx context.Context, remaining int) (int, error) {
		budgets = append(budgets, remaining)
		return min(2, remaining), nil
	})

	require.NoError(t, err)
	assert.Equal(t, StopTarget, out.Reason)
	assert.Equal(t, 5, out.Collected)
	assert.Equal(t, []int{5, 3, 1}, budgets)
	assert.Len(t, f.Scrolls(), 2, "no scroll after the target is reached")
}

func TestScrollDistanceGrows(t *testing.T) {
	f := newSession(t)
	c := New(f, testConfig(8, 50), 0, nil)

	_, err := c.Run(context.Background(), "janedoe", 4, func(ctx context.Context, remaining int) (int, error) {
		return 1, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1500, 1600, 1700}, f.Scrolls())
	assert.Zero(t, f.ScrollsToBottom())
}

func TestOvershootAfterRepeatedStalls(t *testing.T) {
	f := newSession(t)
	c := New(f, testConfig(3, 50), 0, nil)

	out, err := c.Run(context.Background(), "janedoe", 10, never)

	require.NoError(t, err)
	assert.Equal(t, StopStalled, out.Reason)
	assert.Equal(t, []int{1500, 1600, -500, 1000, 1700, -500, 1000}, f.Scrolls())
	assert.Equal(t, 2, f.ScrollsToBottom())
}

func TestRetryAffordanceClicked(t *testing.T) {
	f := newSession(t)
	f.RetryVisible = true
	c := New(f, testConfig(2, 50), 0, nil)

	out, err := c.Run(context.Background(), "janedoe", 10, never)

	require.NoError(t, err)
	assert.Positive(t, out.Retries)
	assert.Equal(t, f.RetryClicks(), out.Retries)
}

func TestNoRetryWhileProducing(t *testing.T) {
	f := newSession(t)
	f.RetryVisible = true
	c := New(f, testConfig(8, 50), 0, nil)

	out, err := c.Run(context.Background(), "janedoe", 3, func(ctx context.Context, remaining int) (int, error) {
		return 1, nil
	})

	require.NoError(t, err)
	assert.Zero(t, out.Retries)
}

func TestRunCancelled(t *testing.T) {
	f := newSession(t)
	c := New(f, testConfig(8, 50), 0, nil)
	ctx, cancel := context.WithCancel(context.Background())

	out, err := c.Run(ctx, "janedoe", 10, func(ctx context.Context, remaining int) (int, error) {
		cancel()
		return 1, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCancelled, out.Reason)
	assert.Equal(t, 1, out.Collected)
}

func TestScanErrorCountsAsStall(t *testing.T) {
	f := newSession(t)
	log := logger.NewTestLogger()
	c := New(f, testConfig(2, 50), 0, log)

	out, err := c.Run(context.Background(), "janedoe", 10, func(ctx context.Context, remaining int) (int, error) {
		return 0, errors.New("page detached")
	})

	require.NoError(t, err)
	assert.Equal(t, StopStalled, out.Reason)
	assert.True(t, log.HasMessage("Scan failed, counting as stall"))
	assert.True(t, log.HasMessage("Scroll finished"))
}

func TestZeroTarget(t *testing.T) {
	f := newSession(t)
	c := New(f, testConfig(8, 50), 0, nil)

	out, err := c.Run(context.Background(), "janedoe", 0, never)
	require.NoError(t, err)
	assert.Equal(t, StopTarget, out.Reason)
	assert.Empty(t, f.Scrolls())
}
