package embed

import (
	"context"
	"math"
	"testing"

	"github.com/yungbote/llm-gateway/internal/logger"
)

type stubGemini struct {
	values []float64
	err    error
	calls  int
}

func (s *stubGemini) EmbedValues(context.Context, string, string) ([]float64, error) {
	s.calls++
	return s.values, s.err
}

func TestGeminiEmbedderTruncates(t *testing.T) {
	stub := &stubGemini{values: []float64{1, 2, 3, 4, 5, 6, 7, 8}}
	e := NewGemini(stub, "embed-model", 4, logger.Nop())

	got, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 dims, got %d", len(got))
	}
	if got[0] != 1 || got[3] != 4 {
		t.Fatalf("truncation kept wrong components: %v", got)
	}
}

func TestGeminiEmbedderNoTruncation(t *testing.T) {
	stub := &stubGemini{values: []float64{1, 2, 3}}
	e := NewGemini(stub, "embed-model", 0, logger.Nop())

	got, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected full vector, got %d dims", len(got))
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   bool
	}{
		{"finite", []float64{0.1, -0.2, 3}, true},
		{"empty", nil, false},
		{"nan", []float64{0.1, math.NaN()}, false},
		{"positive inf", []float64{math.Inf(1)}, false},
		{"negative inf", []float64{math.Inf(-1), 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.values); got != tt.want {
				t.Fatalf("Valid(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestToolInfo(t *testing.T) {
	e := NewGemini(&stubGemini{}, "embed-model", 768, logger.Nop())
	info := ToolInfo(e)
	if info["provider"] != "google" || info["model"] != "embed-model" || info["dimensions"] != "768" {
		t.Fatalf("unexpected tool info: %v", info)
	}
}
