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

const linkupEndpoint = "https://api.linkup.so/v1/search"

// Linkup searches the web through the Linkup API with deep search
// depth.
type Linkup struct {
	log        *logger.Logger
	apiKey     string
	httpClient *http.Client
}

func NewLinkup(apiKey string, log *logger.Logger) *Linkup {
	return &Linkup{
		log:        log.With("search", "linkup"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (l *Linkup) Name() string { return "linkup" }

func (l *Linkup) Configured() bool { return l.apiKey != "" }

func (l *Linkup) Search(ctx context.Context, query string) ([]WebResult, error) {
	if l.apiKey == "" {
		return nil, fmt.Errorf("linkup API key is missing")
	}

	body := map[string]any{
		"q":          query,
		"depth":      "deep",
		"outputType": "searchResults",
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkupEndpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.httpClient.Do(req)
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
			Name    string `json:"name"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("linkup decode: %w", err)
	}

	out := make([]WebResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, WebResult{Title: r.Name, URL: r.URL, Content: r.Content})
	}
	l.log.Debug("Linkup search complete", "query", query, "results", len(out))
	return out, nil
}
