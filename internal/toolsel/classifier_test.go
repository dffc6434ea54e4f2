package toolsel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/yungbote/llm-gateway/internal/logger"
)

type stubLLM struct {
	raw json.RawMessage
	err error
}

func (s *stubLLM) GenerateJSON(context.Context, string, string, map[string]any) (json.RawMessage, error) {
	return s.raw, s.err
}

func TestClassifyTooShort(t *testing.T) {
	c := NewClassifier(&stubLLM{}, logger.Nop())
	for _, q := range []string{"", "  ", "hi"} {
		d := c.Classify(context.Background(), q)
		if len(d.Tools) != 0 {
			t.Fatalf("query %q should produce no tools, got %v", q, d.Tools)
		}
	}
}

func TestClassifyErrorDefaultsToWebSearch(t *testing.T) {
	c := NewClassifier(&stubLLM{err: errors.New("down")}, logger.Nop())
	d := c.Classify(context.Background(), "what happened today")
	if !d.HasTool(ToolWebSearch) || d.WebSearch != "what happened today" {
		t.Fatalf("expected default web search, got %+v", d)
	}
}

func TestClassifyNormalization(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Decision
	}{
		{
			name: "params without tool list",
			raw:  `{"web_search":"golang news"}`,
			want: Decision{Tools: []string{ToolWebSearch}, WebSearch: "golang news"},
		},
		{
			name: "tool list without query",
			raw:  `{"tool":["web_search"]}`,
			want: Decision{Tools: []string{ToolWebSearch}, WebSearch: "original query"},
		},
		{
			name: "query present but tool list omits web_search",
			raw:  `{"tool":["video"],"videos":["https://youtu.be/abc"],"web_search":"context"}`,
			want: Decision{Tools: []string{ToolVideo, ToolWebSearch}, WebSearch: "context", Videos: []string{"https://youtu.be/abc"}},
		},
		{
			name: "video tool without urls",
			raw:  `{"tool":["video"]}`,
			want: Decision{Tools: []string{ToolVideo}, Videos: []string{}},
		},
		{
			name: "empty decision",
			raw:  `{}`,
			want: Decision{Tools: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(&stubLLM{raw: json.RawMessage(tt.raw)}, logger.Nop())
			got := c.Classify(context.Background(), "original query")

			if len(got.Tools) != len(tt.want.Tools) {
				t.Fatalf("tools = %v, want %v", got.Tools, tt.want.Tools)
			}
			for i := range tt.want.Tools {
				if got.Tools[i] != tt.want.Tools[i] {
					t.Fatalf("tools = %v, want %v", got.Tools, tt.want.Tools)
				}
			}
			if got.WebSearch != tt.want.WebSearch {
				t.Fatalf("web_search = %q, want %q", got.WebSearch, tt.want.WebSearch)
			}
			if tt.want.Videos != nil && got.Videos == nil {
				t.Fatalf("videos should not be nil: %+v", got)
			}
		})
	}
}

func TestOptimalTopK(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
		want int
	}{
		{"specific", `{"top_k":3}`, nil, 3},
		{"moderate", `{"top_k":5}`, nil, 5},
		{"broad", `{"top_k":8}`, nil, 8},
		{"out of range", `{"top_k":42}`, nil, DefaultTopK},
		{"malformed", `nonsense`, nil, DefaultTopK},
		{"upstream error", ``, errors.New("down"), DefaultTopK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTopKSelector(&stubLLM{raw: json.RawMessage(tt.raw), err: tt.err}, logger.Nop())
			if got := s.OptimalTopK(context.Background(), "query"); got != tt.want {
				t.Fatalf("OptimalTopK() = %d, want %d", got, tt.want)
			}
		})
	}
}
