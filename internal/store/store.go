package store

import (
	"context"

	"github.com/yungbote/llm-gateway/internal/types"
)

// Store is the persistence surface the pipeline depends on. The only
// implementation talks to a PostgREST-style backend; tests swap fakes.
type Store interface {
	CreateThread(ctx context.Context, t *types.Thread) (*types.Thread, error)
	GetThread(ctx context.Context, threadID string) (*types.Thread, error)
	AddThreadUsage(ctx context.Context, threadID string, tokens int, cost float64) error
	DeleteThread(ctx context.Context, threadID string) error

	CreateMessage(ctx context.Context, m *types.Message) (*types.Message, error)
	ListThreadMessages(ctx context.Context, threadID string) ([]types.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error

	CreateFile(ctx context.Context, f *types.File) (*types.File, error)
	GetFile(ctx context.Context, fileID string, includeContent bool) (*types.File, error)
	FindFileByHash(ctx context.Context, contentHash string) (*types.File, error)
	TouchFile(ctx context.Context, fileID string) error
	UpdateFileAddress(ctx context.Context, contentHash, address string) error
	DeleteFile(ctx context.Context, fileID string) error

	CreateVector(ctx context.Context, v *types.Vector) (*types.Vector, error)
	ListThreadVectors(ctx context.Context, threadID, namespace string, limit int) ([]types.Vector, error)
	SearchVectors(ctx context.Context, p SearchParams) ([]types.Vector, error)
	DeleteVector(ctx context.Context, vectorID string) error
}

// SearchParams drives similarity retrieval within one thread and
// namespace.
type SearchParams struct {
	ThreadID            string
	Namespace           string
	QueryEmbedding      []float64
	SimilarityThreshold float64
	MatchCount          int
}

var _ Store = (*Client)(nil)
