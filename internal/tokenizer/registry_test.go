package tokenizer

import (
	"testing"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/logger"
)

func TestCountUnknownProvider(t *testing.T) {
	r := NewRegistry(logger.Nop())
	_, err := r.Count("hello", "mystery", "gpt-4")
	if err == nil || !apierr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCountUnknownModel(t *testing.T) {
	r := NewRegistry(logger.Nop())
	_, err := r.Count("hello", "openai", "gpt-9000")
	if err == nil || !apierr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCountEmptyText(t *testing.T) {
	r := NewRegistry(logger.Nop())
	n, err := r.Count("", "google", "gemini-2.0-flash-001")
	if err != nil || n != 0 {
		t.Fatalf("Count(empty) = %d, %v", n, err)
	}
}

func TestGeminiEstimate(t *testing.T) {
	r := NewRegistry(logger.Nop())
	n, err := r.Count("this is roughly sixteen tokens worth of text for the estimator", "google", "gemini-2.0-flash-001")
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("estimate should never be zero for non-empty text")
	}
}

func TestCounterFallbackEstimate(t *testing.T) {
	r := NewRegistry(logger.Nop())
	text := "abcdefghijklmnopqrstuvwxyz abcdefghijklmnopqrstuvwxyz"
	r.providers["openai"]["gpt-4"] = func(string) (int, error) {
		return 0, errTest
	}
	n, err := r.Count(text, "openai", "gpt-4")
	if err != nil {
		t.Fatalf("internal tokenizer failure must not surface: %v", err)
	}
	if n != len(text)/4 {
		t.Fatalf("fallback estimate = %d, want %d", n, len(text)/4)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "boom" }

func TestSupported(t *testing.T) {
	r := NewRegistry(logger.Nop())
	if !r.Supported("deepseek", "deepseek-reasoner") {
		t.Fatal("deepseek-reasoner should be supported")
	}
	if r.Supported("deepseek", "deepseek-ultra") {
		t.Fatal("unknown model reported as supported")
	}
}
