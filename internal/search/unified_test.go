package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/toolsel"
)

type fakeSearcher struct {
	name       string
	configured bool
	results    []WebResult
	err        error
	calls      int
}

func (f *fakeSearcher) Name() string     { return f.name }
func (f *fakeSearcher) Configured() bool { return f.configured }
func (f *fakeSearcher) Search(context.Context, string) ([]WebResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeTranscriber struct {
	res TranscriptResult
	err error
}

func (f *fakeTranscriber) Transcript(context.Context, string) (TranscriptResult, error) {
	return f.res, f.err
}

type fakeScraper struct {
	res ScrapeResult
	err error
}

func (f *fakeScraper) Scrape(context.Context, string) (ScrapeResult, error) {
	return f.res, f.err
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=30s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, tt := range tests {
		if got := ExtractVideoID(tt.in); got != tt.want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreferredSearcherFallback(t *testing.T) {
	preferred := &fakeSearcher{name: "linkup", configured: false}
	fallback := &fakeSearcher{name: "tavily", configured: true, results: []WebResult{{Title: "t", URL: "u", Content: "c"}}}
	u := NewUnified("linkup", []ConfiguredSearcher{preferred, fallback}, &fakeTranscriber{}, &fakeScraper{}, logger.Nop())

	out := u.Run(context.Background(), "query", toolsel.Decision{Tools: []string{toolsel.ToolWebSearch}, WebSearch: "query"})
	if preferred.calls != 0 {
		t.Fatal("unconfigured preferred provider must not be called")
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback provider calls = %d", fallback.calls)
	}
	if !strings.Contains(out, "### WEB SEARCH RESULTS") || !strings.Contains(out, "**t**") {
		t.Fatalf("results not rendered:\n%s", out)
	}
}

func TestRunCombinesSections(t *testing.T) {
	searcher := &fakeSearcher{name: "tavily", configured: true, results: []WebResult{{Title: "hit", URL: "https://x", Content: "body"}}}
	u := NewUnified("tavily", []ConfiguredSearcher{searcher},
		&fakeTranscriber{res: TranscriptResult{VideoID: "abc123def45", Transcript: "hello world"}},
		&fakeScraper{res: ScrapeResult{URL: "https://example.com", Markdown: "# Page"}},
		logger.Nop())

	d := toolsel.Decision{
		Tools:     []string{toolsel.ToolWebSearch, toolsel.ToolVideo, toolsel.ToolWebScrape},
		WebSearch: "news",
		Videos:    []string{"https://youtu.be/abc123def45"},
		WebScrape: []string{"https://example.com"},
	}
	out := u.Run(context.Background(), "news", d)

	if !strings.HasPrefix(out, "Search results for: news") {
		t.Fatalf("missing preamble:\n%s", out)
	}
	for _, section := range []string{"### WEB SEARCH RESULTS", "### VIDEO TRANSCRIPT", "### WEB CONTENT", "Video ID: abc123def45", "# Page"} {
		if !strings.Contains(out, section) {
			t.Fatalf("missing %q in output:\n%s", section, out)
		}
	}
}

func TestRunToolFailuresDegrade(t *testing.T) {
	searcher := &fakeSearcher{name: "tavily", configured: true, err: errors.New("down")}
	u := NewUnified("tavily", []ConfiguredSearcher{searcher},
		&fakeTranscriber{err: errors.New("no captions")},
		&fakeScraper{err: errors.New("blocked")},
		logger.Nop())

	d := toolsel.Decision{
		Tools:     []string{toolsel.ToolWebSearch, toolsel.ToolVideo, toolsel.ToolWebScrape},
		WebSearch: "q",
		Videos:    []string{"vid"},
		WebScrape: []string{"https://example.com"},
	}
	out := u.Run(context.Background(), "q", d)

	for _, placeholder := range []string{"No results found.", "Could not retrieve video transcript.", "Could not retrieve web content."} {
		if !strings.Contains(out, placeholder) {
			t.Fatalf("missing placeholder %q:\n%s", placeholder, out)
		}
	}
}

func TestRunFallbackSearchWhenNoToolFired(t *testing.T) {
	searcher := &fakeSearcher{name: "tavily", configured: true, results: []WebResult{{Title: "f", URL: "u", Content: "c"}}}
	u := NewUnified("tavily", []ConfiguredSearcher{searcher}, &fakeTranscriber{}, &fakeScraper{}, logger.Nop())

	out := u.Run(context.Background(), "plain question", toolsel.Decision{Tools: []string{}})
	if searcher.calls != 1 {
		t.Fatalf("fallback search not performed, calls = %d", searcher.calls)
	}
	if !strings.Contains(out, "### WEB SEARCH RESULTS") {
		t.Fatalf("fallback results missing:\n%s", out)
	}
}
