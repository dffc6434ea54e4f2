package contextbuild

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/summarize"
	"github.com/yungbote/llm-gateway/internal/types"
)

// charCounter treats every 4 characters as one token.
type charCounter struct{}

func (charCounter) Count(text, _, _ string) (int, error) { return len(text) / 4, nil }

// fixedCompressor returns a fixed summary for any input.
type fixedCompressor struct {
	content string
	status  int
	calls   int
}

func (f *fixedCompressor) Summarize(_ context.Context, _ string, _ int, _, _ string) summarize.Result {
	f.calls++
	status := f.status
	if status == 0 {
		status = 200
	}
	return summarize.Result{Status: status, Content: f.content}
}

func params(max int, summarize bool) Params {
	return Params{
		MaxTokens:        max,
		Provider:         "deepseek",
		Model:            "deepseek-reasoner",
		Weights:          DefaultWeights,
		UseSummarization: summarize,
	}
}

func TestBuildEverythingFits(t *testing.T) {
	b := New(charCounter{}, &fixedCompressor{}, logger.Nop())
	in := types.ContextBundle{Query: "query", QueryContext: "attachments", LocalContext: "retrieved"}

	out := b.Build(context.Background(), in, params(1000, true))
	if out != in {
		t.Fatalf("bundle modified despite fitting: %+v", out)
	}
}

func TestBuildOversizedQueryDisplacesRest(t *testing.T) {
	comp := &fixedCompressor{content: "summary"}
	b := New(charCounter{}, comp, logger.Nop())
	in := types.ContextBundle{
		Query:        strings.Repeat("q", 4000), // 1000 tokens
		QueryContext: "attachments",
		LocalContext: "retrieved",
	}

	out := b.Build(context.Background(), in, params(100, true))
	if out.Query != "summary" {
		t.Fatalf("query not summarized: %q", out.Query)
	}
	if out.QueryContext != "" || out.LocalContext != "" {
		t.Fatalf("other components must be dropped: %+v", out)
	}
	if comp.calls != 1 {
		t.Fatalf("compressor calls = %d", comp.calls)
	}
}

func TestBuildLeftoverCascades(t *testing.T) {
	// Window 300 tokens, equal weights -> 100 each. Query is tiny, so
	// its leftover flows to query context, which then fits without
	// compression; local context absorbs the rest of the slack.
	comp := &fixedCompressor{content: "summary"}
	b := New(charCounter{}, comp, logger.Nop())
	in := types.ContextBundle{
		Query:        strings.Repeat("q", 40),  // 10 tokens
		QueryContext: strings.Repeat("c", 600), // 150 tokens > 100 base cap
		LocalContext: strings.Repeat("l", 800), // 200 tokens
	}

	out := b.Build(context.Background(), in, params(300, true))
	if out.Query != in.Query {
		t.Fatalf("query should be untouched")
	}
	if out.QueryContext != in.QueryContext {
		t.Fatalf("query context should fit via leftover cascade")
	}
	// Local context cap is 100 + (190-150) = 140 < 200, so it is
	// compressed.
	if out.LocalContext != "summary" {
		t.Fatalf("local context should be summarized, got %d chars", len(out.LocalContext))
	}
}

func TestBuildTruncationFallback(t *testing.T) {
	comp := &fixedCompressor{status: 500}
	b := New(charCounter{}, comp, logger.Nop())
	in := types.ContextBundle{
		Query:        strings.Repeat("q", 40),   // 10 tokens
		QueryContext: strings.Repeat("c", 4000), // 1000 tokens
		LocalContext: strings.Repeat("l", 4000), // 1000 tokens
	}

	out := b.Build(context.Background(), in, params(300, true))
	if len(out.QueryContext) >= len(in.QueryContext) {
		t.Fatal("query context not truncated after summarizer failure")
	}
	if len(out.LocalContext) >= len(in.LocalContext) {
		t.Fatal("local context not truncated after summarizer failure")
	}
}

func TestBuildPartialSummaryStillFitsWindow(t *testing.T) {
	// A compressor that cannot shrink the text reports 206 and hands
	// back the oversized input; the builder must truncate instead of
	// taking that content verbatim.
	comp := &fixedCompressor{status: 206, content: strings.Repeat("s", 20000)}
	b := New(charCounter{}, comp, logger.Nop())
	in := types.ContextBundle{
		Query:        strings.Repeat("q", 40),   // 10 tokens
		QueryContext: strings.Repeat("c", 4000), // 1000 tokens
		LocalContext: strings.Repeat("l", 4000), // 1000 tokens
	}

	out := b.Build(context.Background(), in, params(300, true))
	if comp.calls == 0 {
		t.Fatal("compressor never consulted")
	}
	count := func(s string) int {
		n, _ := charCounter{}.Count(s, "", "")
		return n
	}
	total := count(out.Query) + count(out.QueryContext) + count(out.LocalContext)
	if total > 300 {
		t.Fatalf("assembled context exceeds window: %d > 300", total)
	}
	if strings.Contains(out.QueryContext, "s") || strings.Contains(out.LocalContext, "s") {
		t.Fatal("partial summary content must not be used")
	}
}

func TestBuildSummarizationDisabled(t *testing.T) {
	comp := &fixedCompressor{content: "summary"}
	b := New(charCounter{}, comp, logger.Nop())
	in := types.ContextBundle{
		Query:        strings.Repeat("q", 40),
		QueryContext: strings.Repeat("c", 4000),
		LocalContext: strings.Repeat("l", 4000),
	}

	out := b.Build(context.Background(), in, params(300, false))
	if comp.calls != 0 {
		t.Fatalf("compressor must not run when disabled, calls = %d", comp.calls)
	}
	if len(out.QueryContext) >= len(in.QueryContext) || len(out.LocalContext) >= len(in.LocalContext) {
		t.Fatal("components not truncated")
	}
}

func TestBuildZeroWeightsDefaulted(t *testing.T) {
	b := New(charCounter{}, &fixedCompressor{content: "s"}, logger.Nop())
	in := types.ContextBundle{Query: "q", QueryContext: "c", LocalContext: "l"}
	p := params(100, true)
	p.Weights = [3]int{}

	out := b.Build(context.Background(), in, p)
	if out != in {
		t.Fatalf("small bundle should pass through: %+v", out)
	}
}
