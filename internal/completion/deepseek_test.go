package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/observability"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestDeepseekChatParsesUsageAndRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model != "deepseek-chat" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}],"usage":{"prompt_tokens":12,"completion_tokens":7,"total_tokens":19}}`)
	}))
	defer srv.Close()

	m := observability.NewMetrics()
	c := NewDeepseekClient("test-key", m, logger.Nop())
	c.endpoint = srv.URL

	text, usage, err := c.Chat(context.Background(), "deepseek-chat", []ChatMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("text = %q", text)
	}
	if usage.PromptTokens != 12 || usage.CompletionTokens != 7 || usage.TotalTokens != 19 {
		t.Fatalf("usage = %+v", usage)
	}

	body := scrape(t, m)
	for _, want := range []string{
		`app_llm_requests_total{model="deepseek-chat",status="ok"} 1`,
		`app_llm_tokens_total{direction="input",model="deepseek-chat"} 12`,
		`app_llm_tokens_total{direction="output",model="deepseek-chat"} 7`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestDeepseekChatUpstreamFailureRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	m := observability.NewMetrics()
	c := NewDeepseekClient("test-key", m, logger.Nop())
	c.endpoint = srv.URL

	_, _, err := c.Chat(context.Background(), "deepseek-chat", []ChatMessage{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error not mapped: %v", err)
	}

	if want := `app_llm_requests_total{model="deepseek-chat",status="error"} 1`; !strings.Contains(scrape(t, m), want) {
		t.Fatalf("exposition missing %q", want)
	}
}
