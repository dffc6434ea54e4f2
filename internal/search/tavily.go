package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yungbote/llm-gateway/internal/httpx"
	"github.com/yungbote/llm-gateway/internal/logger"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily searches the web through the Tavily API.
type Tavily struct {
	log        *logger.Logger
	apiKey     string
	maxResults int
	httpClient *http.Client
}

func NewTavily(apiKey string, log *logger.Logger) *Tavily {
	return &Tavily{
		log:        log.With("search", "tavily"),
		apiKey:     apiKey,
		maxResults: 5,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *Tavily) Name() string { return "tavily" }

// Configured reports whether a credential is present.
func (t *Tavily) Configured() bool { return t.apiKey != "" }

func (t *Tavily) Search(ctx context.Context, query string) ([]WebResult, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("tavily API key is missing")
	}

	body := map[string]any{
		"api_key":      t.apiKey,
		"query":        query,
		"max_results":  t.maxResults,
		"search_depth": "advanced",
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpx.StatusError{StatusCode: resp.StatusCode, Body: httpx.Truncate(string(payload), 256)}
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("tavily decode: %w", err)
	}

	out := make([]WebResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, WebResult{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	t.log.Debug("Tavily search complete", "query", query, "results", len(out))
	return out, nil
}
