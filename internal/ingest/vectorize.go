package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/llm-gateway/internal/chunk"
	"github.com/yungbote/llm-gateway/internal/embed"
	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/observability"
	"github.com/yungbote/llm-gateway/internal/parse"
	"github.com/yungbote/llm-gateway/internal/store"
	"github.com/yungbote/llm-gateway/internal/types"
)

// Vectorizer turns stored files into embedded chunks under the files
// namespace, and single messages into vectors under messages.
type Vectorizer struct {
	log          *logger.Logger
	store        store.Store
	parsers      *parse.Registry
	embedder     embed.Embedder
	metrics      *observability.Metrics
	uploadDir    string
	chunkSize    int
	chunkOverlap int
	concurrency  int
}

func NewVectorizer(st store.Store, parsers *parse.Registry, embedder embed.Embedder, metrics *observability.Metrics, uploadDir string, chunkSize, chunkOverlap, concurrency int, log *logger.Logger) *Vectorizer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Vectorizer{
		log:          log.With("service", "vectorize"),
		store:        st,
		parsers:      parsers,
		embedder:     embedder,
		metrics:      metrics,
		uploadDir:    uploadDir,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		concurrency:  concurrency,
	}
}

// VectorizeFiles parses, chunks, and embeds each file into the
// thread's files namespace. Per-file failures are logged and skipped;
// one bad attachment never blocks the rest.
func (v *Vectorizer) VectorizeFiles(ctx context.Context, threadID string, fileIDs []string) {
	if len(fileIDs) == 0 {
		return
	}
	v.log.Info("Vectorizing files", "thread_id", threadID, "count", len(fileIDs))

	for _, fileID := range fileIDs {
		f, err := v.store.GetFile(ctx, fileID, true)
		if err != nil {
			v.log.Warn("File not found, skipping", "file_id", fileID, "error", err)
			continue
		}

		text := f.Content
		if text == "" {
			text = v.parseFromDisk(ctx, f)
		}
		if strings.TrimSpace(text) == "" {
			v.log.Warn("No content extracted from file", "file_id", fileID)
			continue
		}

		chunks := chunk.Split(text, v.chunkSize, v.chunkOverlap)
		v.log.Info("Chunked file", "file_id", fileID, "filename", f.Filename, "chunks", len(chunks))

		embedded := v.embedChunks(ctx, threadID, f, chunks)
		v.log.Info("Embedded file chunks", "file_id", fileID, "stored", embedded, "total", len(chunks))
	}
}

// embedChunks embeds and stores chunks with bounded fan-out. Returns
// the number of vectors persisted.
func (v *Vectorizer) embedChunks(ctx context.Context, threadID string, f *types.File, chunks []types.Chunk) int {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	stored := make(chan int, len(chunks))
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			values, err := v.embedder.Embed(gctx, c.Text)
			if err != nil {
				v.log.Warn("Chunk embedding failed, skipping", "file_id", f.FileID, "chunk", c.Index, "error", err)
				return nil
			}
			if !embed.Valid(values) {
				v.log.Warn("Chunk embedding invalid, skipping", "file_id", f.FileID, "chunk", c.Index)
				return nil
			}
			idx := c.Index
			_, err = v.store.CreateVector(gctx, &types.Vector{
				ThreadID:  threadID,
				Embedding: values,
				Content:   c.Text,
				Namespace: types.NamespaceFiles,
				EmbedTool: embed.ToolInfo(v.embedder),
				Metadata: types.VectorMetadata{
					Source:     "file",
					FileID:     f.FileID,
					FileName:   f.Filename,
					FileType:   f.Type,
					ChunkIndex: &idx,
				},
			})
			if err != nil {
				v.log.Warn("Vector store failed, skipping chunk", "file_id", f.FileID, "chunk", c.Index, "error", err)
				return nil
			}
			stored <- 1
			return nil
		})
	}
	_ = g.Wait()
	close(stored)

	n := 0
	for range stored {
		n++
	}
	v.metrics.AddVectorsStored(n)
	return n
}

// VectorizeMessage embeds one message body into the messages
// namespace. Replies shorter than the floor carry no retrievable
// signal and are skipped.
func (v *Vectorizer) VectorizeMessage(ctx context.Context, threadID, messageID, role, text string) {
	if len(strings.TrimSpace(text)) <= 10 {
		return
	}
	values, err := v.embedder.Embed(ctx, text)
	if err != nil {
		v.log.Warn("Message embedding failed", "message_id", messageID, "error", err)
		return
	}
	if !embed.Valid(values) {
		v.log.Warn("Message embedding invalid", "message_id", messageID)
		return
	}
	_, err = v.store.CreateVector(ctx, &types.Vector{
		ThreadID:  threadID,
		MessageID: messageID,
		Embedding: values,
		Content:   text,
		Namespace: types.NamespaceMessages,
		EmbedTool: embed.ToolInfo(v.embedder),
		Metadata: types.VectorMetadata{
			Source: "message",
			Role:   role,
		},
	})
	if err != nil {
		v.log.Warn("Message vector store failed", "message_id", messageID, "error", err)
		return
	}
	v.metrics.AddVectorsStored(1)
}

// uploadSearchPaths are the directories tried when a stored filename
// must be located on disk. Container and host layouts differ, so
// several conventional mounts are probed.
func (v *Vectorizer) uploadSearchPaths() []string {
	paths := []string{v.uploadDir, "/app/uploads", "/tmp/uploads", "/var/tmp/uploads", "/usr/src/app/uploads"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "uploads"))
	}
	return append(paths, "./uploads")
}

func (v *Vectorizer) parseFromDisk(ctx context.Context, f *types.File) string {
	if f.Address == "" || f.Address == types.AddressDeleted {
		v.log.Warn("File has no on-disk address", "file_id", f.FileID, "address", f.Address)
		return ""
	}

	path := ""
	if fi, err := os.Stat(f.Address); err == nil && !fi.IsDir() {
		path = f.Address
	} else {
		for _, dir := range v.uploadSearchPaths() {
			candidate := filepath.Join(dir, f.Address)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				path = candidate
				break
			}
		}
	}
	// Host paths recorded by a non-containerized writer may be
	// mounted under a different prefix here.
	if path == "" && strings.HasPrefix(f.Address, "/Users/") {
		for _, prefix := range []string{"/app", "/usr/src/app", "/tmp"} {
			candidate := strings.Replace(f.Address, "/Users", prefix, 1)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		v.log.Error("Could not locate file on disk", "file_id", f.FileID, "address", f.Address)
		return ""
	}

	res := v.parsers.Parse(ctx, path)
	if res.Status != 200 {
		v.log.Warn("Parse failed", "file_id", f.FileID, "path", path, "message", res.Text)
		return ""
	}
	return res.Text
}
