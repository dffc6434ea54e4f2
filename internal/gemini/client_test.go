package gemini

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/llm-gateway/internal/logger"
)

func TestUnconfiguredClientFailsPerCall(t *testing.T) {
	c := NewClient("", logger.Nop())
	if c == nil {
		t.Fatal("constructor must not fail without a key")
	}
	if c.Configured() {
		t.Fatal("empty key reported as configured")
	}

	if _, err := c.GenerateText(context.Background(), "", "hello"); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected not-configured error, got %v", err)
	}
	if _, err := c.EmbedValues(context.Background(), "embed-model", "hello"); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("key", logger.Nop()).Configured() {
		t.Fatal("key not recognized")
	}
	if NewClient("   ", logger.Nop()).Configured() {
		t.Fatal("whitespace key accepted")
	}
}
