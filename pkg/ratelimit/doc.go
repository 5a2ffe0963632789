// Package ratelimit paces the scraper's outbound HTTP traffic.
//
// Media downloads share one TokenBucket so that a worker pool of any size
// cannot exceed the configured request rate; the translator has its own.
// Wait takes a context so a cancelled scrape stops queueing immediately.
package ratelimit
