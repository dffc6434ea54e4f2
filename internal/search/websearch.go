// Package search implements the external enrichment tools: web
// search, video transcripts, and page scraping, plus the unified
// front that combines them.
package search

import (
	"context"
)

// WebResult is one hit from a web search provider, normalized across
// providers.
type WebResult struct {
	Title   string
	URL     string
	Content string
}

// WebSearcher runs a query against one provider.
type WebSearcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]WebResult, error)
}

// TranscriptResult is a fetched video transcript.
type TranscriptResult struct {
	VideoID    string
	Transcript string
}

// VideoTranscriber fetches a transcript from a video URL or ID.
type VideoTranscriber interface {
	Transcript(ctx context.Context, urlOrID string) (TranscriptResult, error)
}

// ScrapeResult is the extracted content of one page.
type ScrapeResult struct {
	URL      string
	Markdown string
}

// Scraper extracts readable content from a web page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (ScrapeResult, error)
}
