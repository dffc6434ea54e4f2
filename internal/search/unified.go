package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/toolsel"
)

// ConfiguredSearcher is a web searcher that knows whether it has a
// credential.
type ConfiguredSearcher interface {
	WebSearcher
	Configured() bool
}

// Unified fans a classifier decision out to the enrichment tools and
// renders every result into one text block for context assembly.
type Unified struct {
	log         *logger.Logger
	preference  string
	searchers   []ConfiguredSearcher
	transcriber VideoTranscriber
	scraper     Scraper
}

// NewUnified wires the enrichment front. searchers are candidates for
// web search; preference names the one to try first.
func NewUnified(preference string, searchers []ConfiguredSearcher, transcriber VideoTranscriber, scraper Scraper, log *logger.Logger) *Unified {
	return &Unified{
		log:         log.With("component", "unified_search"),
		preference:  preference,
		searchers:   searchers,
		transcriber: transcriber,
		scraper:     scraper,
	}
}

// preferredSearcher picks the preferred provider when it has a
// credential, else any provider that does, else nil.
func (u *Unified) preferredSearcher() ConfiguredSearcher {
	for _, s := range u.searchers {
		if s.Name() == u.preference && s.Configured() {
			return s
		}
	}
	for _, s := range u.searchers {
		if s.Configured() {
			u.log.Info("Preferred search provider unavailable, falling back", "preferred", u.preference, "using", s.Name())
			return s
		}
	}
	return nil
}

// Run executes the tools the decision names and returns the combined
// rendered results. When no tool produced output, the original query
// is searched as a fallback.
func (u *Unified) Run(ctx context.Context, query string, d toolsel.Decision) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for: %s\n\n", query)
	performed := false

	if d.WebSearch != "" || d.HasTool(toolsel.ToolWebSearch) {
		q := d.WebSearch
		if q == "" {
			q = query
		}
		sb.WriteString(u.runWebSearch(ctx, q))
		performed = true
	}

	if len(d.Videos) > 0 {
		for _, v := range d.Videos {
			sb.WriteString(u.runTranscript(ctx, v))
		}
		performed = true
	}

	if len(d.WebScrape) > 0 {
		for _, target := range d.WebScrape {
			sb.WriteString(u.runScrape(ctx, target))
		}
		performed = true
	}

	if !performed && query != "" {
		sb.WriteString(u.runWebSearch(ctx, query))
	}
	return sb.String()
}

func (u *Unified) runWebSearch(ctx context.Context, query string) string {
	var sb strings.Builder
	sb.WriteString("### WEB SEARCH RESULTS\n\n")

	searcher := u.preferredSearcher()
	if searcher == nil {
		u.log.Warn("No web search provider is configured")
		sb.WriteString("No results found.\n\n")
		return sb.String()
	}

	results, err := searcher.Search(ctx, query)
	if err != nil {
		u.log.Error("Web search failed", "provider", searcher.Name(), "error", err)
		sb.WriteString("No results found.\n\n")
		return sb.String()
	}
	if len(results) == 0 {
		sb.WriteString("No results found.\n\n")
		return sb.String()
	}
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s**\n   URL: %s\n   %s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	return sb.String()
}

func (u *Unified) runTranscript(ctx context.Context, urlOrID string) string {
	var sb strings.Builder
	sb.WriteString("### VIDEO TRANSCRIPT\n\n")

	res, err := u.transcriber.Transcript(ctx, urlOrID)
	if err != nil {
		u.log.Error("Transcript fetch failed", "video", urlOrID, "error", err)
		sb.WriteString("Could not retrieve video transcript.\n\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Video ID: %s\n\n%s\n\n", res.VideoID, res.Transcript)
	return sb.String()
}

func (u *Unified) runScrape(ctx context.Context, target string) string {
	var sb strings.Builder
	sb.WriteString("### WEB CONTENT\n\n")

	res, err := u.scraper.Scrape(ctx, target)
	if err != nil {
		u.log.Error("Scrape failed", "url", target, "error", err)
		sb.WriteString("Could not retrieve web content.\n\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Source: %s\n\n%s\n\n", res.URL, res.Markdown)
	return sb.String()
}
