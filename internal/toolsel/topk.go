package toolsel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yungbote/llm-gateway/internal/logger"
)

// DefaultTopK is used when depth selection fails or returns an
// unexpected value.
const DefaultTopK = 5

const topKTimeout = 30 * time.Second

const topKInstruction = `You are an expert at choosing the optimal number of chunks (top_k) to retrieve from a vector store for a given user query.
Based on the user's query, determine how specific or broad it is, and select the appropriate top_k value:

- Pick 3 if very specific and focused.
- Pick 5 if moderately specific.
- Pick 8 if very broad or open ended.

Return only a JSON object with the 'top_k' key and appropriate value.`

var topKSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"top_k": map[string]any{"type": "integer"},
	},
	"required": []string{"top_k"},
}

// TopKSelector asks the model how many chunks a query deserves.
type TopKSelector struct {
	log *logger.Logger
	llm StructuredLLM
}

func NewTopKSelector(llm StructuredLLM, log *logger.Logger) *TopKSelector {
	return &TopKSelector{log: log.With("component", "topk"), llm: llm}
}

// OptimalTopK returns 3, 5, or 8 based on query specificity, falling
// back to the default on any failure.
func (s *TopKSelector) OptimalTopK(ctx context.Context, query string) int {
	ctx, cancel := context.WithTimeout(ctx, topKTimeout)
	defer cancel()

	raw, err := s.llm.GenerateJSON(ctx, topKInstruction, query, topKSchema)
	if err != nil {
		s.log.Warn("Top-k selection failed, using default", "error", err)
		return DefaultTopK
	}
	var parsed struct {
		TopK int `json:"top_k"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.log.Warn("Top-k selection returned malformed JSON, using default", "error", err)
		return DefaultTopK
	}
	switch parsed.TopK {
	case 3, 5, 8:
		return parsed.TopK
	default:
		return DefaultTopK
	}
}
