// Package embed turns text into dense vectors via the Gemini
// embedding API, with an optional Redis cache in front.
package embed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yungbote/llm-gateway/internal/logger"
)

// Embedder produces one embedding per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Dimensions() int
}

// GeminiEmbed is the slice of the Gemini client the embedder uses.
type GeminiEmbed interface {
	EmbedValues(ctx context.Context, model, text string) ([]float64, error)
}

const embedTimeout = 30 * time.Second

type geminiEmbedder struct {
	log        *logger.Logger
	client     GeminiEmbed
	model      string
	dimensions int
}

// NewGemini builds an embedder on the named model. When dimensions is
// positive the returned vectors are truncated to that many leading
// components; Gemini's embeddings are trained so prefixes remain
// usable at reduced width.
func NewGemini(client GeminiEmbed, model string, dimensions int, log *logger.Logger) Embedder {
	return &geminiEmbedder{
		log:        log.With("component", "embed"),
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

func (e *geminiEmbedder) Model() string   { return e.model }
func (e *geminiEmbedder) Dimensions() int { return e.dimensions }

func (e *geminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	values, err := e.client.EmbedValues(ctx, e.model, text)
	if err != nil {
		return nil, err
	}
	if e.dimensions > 0 && len(values) > e.dimensions {
		values = values[:e.dimensions]
	}
	return values, nil
}

// Valid reports whether every component is a finite number. Vectors
// failing this check are skipped by callers rather than persisted.
func Valid(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ToolInfo describes the embedding provenance recorded on each vector.
func ToolInfo(e Embedder) map[string]string {
	info := map[string]string{
		"provider": "google",
		"model":    e.Model(),
	}
	if d := e.Dimensions(); d > 0 {
		info["dimensions"] = fmt.Sprintf("%d", d)
	}
	return info
}

// Normalize collapses whitespace before hashing for the cache key so
// trivially reformatted text hits the same entry.
func normalizeForKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
