// Package toolsel classifies a user query into the external tools it
// needs and picks the retrieval depth.
package toolsel

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/yungbote/llm-gateway/internal/logger"
)

// Decision is the classifier's verdict: which tools to run and their
// parameters.
type Decision struct {
	Tools     []string `json:"tool"`
	WebSearch string   `json:"web_search,omitempty"`
	Videos    []string `json:"videos,omitempty"`
	WebScrape []string `json:"web_scrap,omitempty"`
}

const (
	ToolWebSearch = "web_search"
	ToolVideo     = "video"
	ToolWebScrape = "web_scrap"
)

// HasTool reports whether the decision includes the named tool.
func (d Decision) HasTool(name string) bool {
	for _, t := range d.Tools {
		if t == name {
			return true
		}
	}
	return false
}

// StructuredLLM is the schema-constrained completion surface.
type StructuredLLM interface {
	GenerateJSON(ctx context.Context, system, user string, schema map[string]any) (json.RawMessage, error)
}

const classifyTimeout = 30 * time.Second

const classifierInstruction = `You are an expert at tools indicator. You have access to the following tools:

1. web_search
   - When the user's request requires up-to-date or real-time information.
   - Parameters:
     - ` + "`query`" + ` (string) - A concise query describing the information to be retrieved.

2. video
   - When the user provides valid video URLs (e.g., YouTube links) that require video related processing.
   - Parameters:
     - ` + "`urls`" + ` (string[]) - An array of video URLs.

3. web_scrape
   - When the user provides Non-video URLs (e.g., GitHub, Reddit, news articles) that require direct content extraction.
   - Parameters:
     - ` + "`urls`" + ` (string[]) - An array of webpage URLs to scrape.`

var classifierSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tool": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"web_search": map[string]any{"type": "string"},
		"videos": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"web_scrap": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
}

type Classifier struct {
	log *logger.Logger
	llm StructuredLLM
}

func NewClassifier(llm StructuredLLM, log *logger.Logger) *Classifier {
	return &Classifier{log: log.With("component", "toolsel"), llm: llm}
}

// Classify decides which external tools a query needs. Queries too
// short to mean anything get an empty decision; classification errors
// degrade to a default web search so enrichment still happens.
func (c *Classifier) Classify(ctx context.Context, query string) Decision {
	if len(strings.TrimSpace(query)) < 3 {
		return Decision{Tools: []string{}}
	}

	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	raw, err := c.llm.GenerateJSON(ctx, classifierInstruction, query, classifierSchema)
	if err != nil {
		c.log.Error("Tool classification failed, defaulting to web search", "error", err)
		return defaultWebSearch(query)
	}

	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		c.log.Error("Tool classification returned malformed JSON, defaulting to web search", "error", err)
		return defaultWebSearch(query)
	}
	return normalize(d, query)
}

func defaultWebSearch(query string) Decision {
	return Decision{Tools: []string{ToolWebSearch}, WebSearch: query}
}

// normalize repairs the shapes the model actually emits: parameters
// without a tool list, tool lists without parameters, and parameter
// keys the tool list never mentions.
func normalize(d Decision, query string) Decision {
	if len(d.Tools) == 0 {
		if d.WebSearch != "" {
			d.Tools = append(d.Tools, ToolWebSearch)
		}
		if len(d.Videos) > 0 {
			d.Tools = append(d.Tools, ToolVideo)
		}
		if len(d.WebScrape) > 0 {
			d.Tools = append(d.Tools, ToolWebScrape)
		}
		if d.Tools == nil {
			d.Tools = []string{}
		}
		return d
	}

	if d.HasTool(ToolWebSearch) && d.WebSearch == "" {
		d.WebSearch = query
	}
	if d.WebSearch != "" && !d.HasTool(ToolWebSearch) {
		d.Tools = append(d.Tools, ToolWebSearch)
	}
	if d.HasTool(ToolVideo) && d.Videos == nil {
		d.Videos = []string{}
	}
	if d.HasTool(ToolWebScrape) && d.WebScrape == nil {
		d.WebScrape = []string{}
	}
	return d
}
