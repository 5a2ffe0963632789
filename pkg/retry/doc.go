// Package retry provides backoff and retry logic for the scraper's outbound
// HTTP calls (media downloads and translation) and the context-aware Wait used
// for settle delays between browser actions.
//
// Usage:
//
//	cfg := retry.WithAttempts(3, log)
//	body, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
//		return fetch(ctx, url)
//	}, cfg)
//
// Typed errors from pkg/errors are retried according to their type; context
// cancellation is never retried.
package retry
