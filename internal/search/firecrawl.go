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

const firecrawlEndpoint = "https://api.firecrawl.dev/v1/scrape"

// scrapeContentLimit caps how much of a page makes it into context.
const scrapeContentLimit = 10000

// Firecrawl extracts page content as markdown through the Firecrawl
// API.
type Firecrawl struct {
	log        *logger.Logger
	apiKey     string
	httpClient *http.Client
}

func NewFirecrawl(apiKey string, log *logger.Logger) *Firecrawl {
	return &Firecrawl{
		log:        log.With("search", "firecrawl"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *Firecrawl) Configured() bool { return f.apiKey != "" }

func (f *Firecrawl) Scrape(ctx context.Context, url string) (ScrapeResult, error) {
	if f.apiKey == "" {
		return ScrapeResult{}, fmt.Errorf("firecrawl API key is missing")
	}

	body := map[string]any{
		"url":     url,
		"formats": []string{"markdown"},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return ScrapeResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, firecrawlEndpoint, bytes.NewReader(raw))
	if err != nil {
		return ScrapeResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return ScrapeResult{}, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return ScrapeResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return ScrapeResult{}, &httpx.StatusError{StatusCode: resp.StatusCode, Body: httpx.Truncate(string(payload), 256)}
	}

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			Markdown string `json:"markdown"`
			HTML     string `json:"html"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return ScrapeResult{}, fmt.Errorf("firecrawl decode: %w", err)
	}
	if !parsed.Success {
		return ScrapeResult{}, fmt.Errorf("firecrawl reported failure for %s", url)
	}

	content := parsed.Data.Markdown
	if content == "" {
		content = parsed.Data.HTML
	}
	if content == "" {
		return ScrapeResult{}, fmt.Errorf("no content extracted from %s", url)
	}
	if len(content) > scrapeContentLimit {
		content = content[:scrapeContentLimit] + "... [content truncated]"
	}

	f.log.Debug("Scraped page", "url", url, "chars", len(content))
	return ScrapeResult{URL: url, Markdown: content}, nil
}
