package store

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/types"
)

func (c *Client) CreateVector(ctx context.Context, v *types.Vector) (*types.Vector, error) {
	if v == nil || v.ThreadID == "" || v.Namespace == "" {
		return nil, apierr.Validation(fmt.Errorf("vector requires thread_id and namespace"))
	}
	if len(v.Embedding) == 0 {
		return nil, apierr.Validation(fmt.Errorf("vector requires a non-empty embedding"))
	}
	var rows []types.Vector
	if err := c.do(ctx, http.MethodPost, "/vectors", nil, v, &rows); err != nil {
		return nil, err
	}
	return firstOf(rows, "/vectors")
}

type searchRPCRequest struct {
	QueryEmbedding      []float64 `json:"query_embedding"`
	Namespace           string    `json:"namespace"`
	SimilarityThreshold float64   `json:"similarity_threshold"`
	MatchCount          int       `json:"match_count"`
	ThreadID            string    `json:"thread_id"`
}

// SearchVectors ranks a thread's vectors by cosine similarity against
// the query embedding. It prefers the backend's search_vectors RPC; if
// the backend does not expose it, the thread's vectors are pulled and
// ranked locally with identical semantics.
func (c *Client) SearchVectors(ctx context.Context, p SearchParams) ([]types.Vector, error) {
	if p.ThreadID == "" || p.Namespace == "" {
		return nil, apierr.Validation(fmt.Errorf("search requires thread_id and namespace"))
	}
	if len(p.QueryEmbedding) == 0 {
		return nil, apierr.Validation(fmt.Errorf("search requires a query embedding"))
	}
	if p.MatchCount <= 0 {
		p.MatchCount = 5
	}

	req := searchRPCRequest{
		QueryEmbedding:      p.QueryEmbedding,
		Namespace:           p.Namespace,
		SimilarityThreshold: p.SimilarityThreshold,
		MatchCount:          p.MatchCount,
		ThreadID:            p.ThreadID,
	}
	var rows []types.Vector
	err := c.do(ctx, http.MethodPost, "/rpc/search_vectors", nil, req, &rows)
	if err == nil {
		return rows, nil
	}
	if !apierr.IsNotFound(err) {
		return nil, err
	}

	c.log.Debug("search_vectors RPC unavailable, ranking locally", "thread_id", p.ThreadID)
	// The fallback must rank the whole namespace, so no limit here.
	all, err := c.ListThreadVectors(ctx, p.ThreadID, p.Namespace, 0)
	if err != nil {
		return nil, err
	}
	return RankBySimilarity(all, p.QueryEmbedding, p.SimilarityThreshold, p.MatchCount), nil
}

// ListThreadVectors returns a thread's vectors within one namespace.
// A limit of zero or less returns every row.
func (c *Client) ListThreadVectors(ctx context.Context, threadID, namespace string, limit int) ([]types.Vector, error) {
	if threadID == "" || namespace == "" {
		return nil, apierr.Validation(fmt.Errorf("listing vectors requires thread_id and namespace"))
	}
	q := url.Values{}
	q.Set("thread_id", "eq."+threadID)
	q.Set("namespace", "eq."+namespace)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var rows []types.Vector
	if err := c.do(ctx, http.MethodGet, "/vectors", q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) DeleteVector(ctx context.Context, vectorID string) error {
	if vectorID == "" {
		return apierr.Validation(fmt.Errorf("vector_id is required"))
	}
	q := url.Values{}
	q.Set("vector_id", "eq."+vectorID)
	return c.do(ctx, http.MethodDelete, "/vectors", q, nil, nil)
}

// RankBySimilarity mirrors the backend RPC: score every candidate,
// drop those below the threshold, sort descending, keep the top k.
func RankBySimilarity(candidates []types.Vector, query []float64, threshold float64, k int) []types.Vector {
	scored := make([]types.Vector, 0, len(candidates))
	for _, v := range candidates {
		sim := CosineSimilarity(query, v.Embedding)
		if sim < threshold {
			continue
		}
		v.Similarity = sim
		scored = append(scored, v)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// CosineSimilarity returns 0 for mismatched or zero-magnitude inputs.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
