// Package retrieve finds the stored chunks most relevant to a query
// and renders them for context assembly.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/llm-gateway/internal/embed"
	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/store"
)

// KSelector decides retrieval depth for a query. The toolsel selector
// satisfies this; tests use fixed values.
type KSelector interface {
	OptimalTopK(ctx context.Context, query string) int
}

// FixedK is a KSelector that always returns the same depth.
type FixedK int

func (k FixedK) OptimalTopK(context.Context, string) int { return int(k) }

type Retriever struct {
	log       *logger.Logger
	store     store.Store
	embedder  embed.Embedder
	selector  KSelector
	threshold float64
}

func New(st store.Store, embedder embed.Embedder, selector KSelector, threshold float64, log *logger.Logger) *Retriever {
	return &Retriever{
		log:       log.With("component", "retrieve"),
		store:     st,
		embedder:  embedder,
		selector:  selector,
		threshold: threshold,
	}
}

// Relevant embeds the query, picks a depth, and returns the rendered
// top chunks from the thread's namespace. Failures and empty results
// both come back as an empty string; retrieval never blocks a
// completion.
func (r *Retriever) Relevant(ctx context.Context, threadID, namespace, query string) string {
	if strings.TrimSpace(query) == "" {
		r.log.Debug("Empty query, skipping retrieval", "thread_id", threadID)
		return ""
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Error("Query embedding failed, skipping retrieval", "thread_id", threadID, "error", err)
		return ""
	}
	if !embed.Valid(queryEmbedding) {
		r.log.Warn("Query embedding invalid, skipping retrieval", "thread_id", threadID)
		return ""
	}

	k := r.selector.OptimalTopK(ctx, query)
	vectors, err := r.store.SearchVectors(ctx, store.SearchParams{
		ThreadID:            threadID,
		Namespace:           namespace,
		QueryEmbedding:      queryEmbedding,
		SimilarityThreshold: r.threshold,
		MatchCount:          k,
	})
	if err != nil {
		r.log.Error("Vector search failed, skipping retrieval", "thread_id", threadID, "error", err)
		return ""
	}
	if len(vectors) == 0 {
		r.log.Info("No similar vectors found", "thread_id", threadID, "namespace", namespace)
		return ""
	}

	contexts := make([]string, 0, len(vectors))
	for i, v := range vectors {
		if v.Content == "" {
			continue
		}
		source := ""
		if v.Metadata.FileName != "" {
			source = fmt.Sprintf(" (Source: %s)", v.Metadata.FileName)
		}
		contexts = append(contexts, fmt.Sprintf("Chunk #%d%s:\n%s", i+1, source, v.Content))
	}
	r.log.Info("Retrieved relevant context", "thread_id", threadID, "chunks", len(contexts), "top_k", k)
	return strings.Join(contexts, "\n\n")
}
