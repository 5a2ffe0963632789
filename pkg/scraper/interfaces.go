package scraper

import (
	"context"

	"xscraper/pkg/language"
)

// MediaFetcher resolves a remote media URL to a local path, returning "" on failure
type MediaFetcher interface {
	Fetch(ctx context.Context, url, owner, contextID string) string
}

// TextNormalizer detects the language of post text and translates it when needed
type TextNormalizer interface {
	Normalize(ctx context.Context, text string) language.Normalized
}
