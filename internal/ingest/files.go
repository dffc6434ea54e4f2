// Package ingest handles file intake: content-addressed storage of
// uploads and turning stored files into searchable vectors.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/parse"
	"github.com/yungbote/llm-gateway/internal/store"
	"github.com/yungbote/llm-gateway/internal/types"
)

// UploadResult describes one accepted upload.
type UploadResult struct {
	FileID         string
	Filename       string
	StoredFilename string
	Size           int64
}

// textLikeExtensions decode into the content column on create. This
// is a superset of the parser's text formats.
var textLikeExtensions = map[string]bool{
	".txt": true, ".py": true, ".java": true, ".js": true, ".html": true,
	".css": true, ".c": true, ".cpp": true, ".h": true, ".hpp": true,
	".cs": true, ".php": true, ".rb": true, ".go": true, ".rs": true,
	".sql": true, ".ts": true, ".swift": true, ".kt": true, ".csv": true,
	".tsv": true, ".json": true, ".xml": true, ".yaml": true, ".yml": true,
	".md": true, ".rst": true,
}

// FileService stores uploads on disk and registers them in the
// backend, deduplicating by content hash.
type FileService struct {
	log       *logger.Logger
	store     store.Store
	parsers   *parse.Registry
	uploadDir string
	maxBytes  int64
}

func NewFileService(st store.Store, parsers *parse.Registry, uploadDir string, maxBytes int64, log *logger.Logger) *FileService {
	return &FileService{
		log:       log.With("service", "files"),
		store:     st,
		parsers:   parsers,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
	}
}

// SaveUpload validates, stores, and registers one uploaded file.
// Re-uploads of known content do not write a new row: a live
// duplicate just gets its timestamp bumped, and a deleted one is
// restored under a fresh stored filename.
func (s *FileService) SaveUpload(ctx context.Context, filename string, content []byte, author *types.Author) (*UploadResult, error) {
	size := int64(len(content))
	if size == 0 {
		return nil, fmt.Errorf("file %s is empty", filename)
	}
	if size > s.maxBytes {
		return nil, fmt.Errorf("file %s is too large, max file size %dMB", filename, s.maxBytes/(1024*1024))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.parsers.Supported(ext) {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	contentHash := store.HashBytes(content)
	existing, err := s.store.FindFileByHash(ctx, contentHash)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Address != types.AddressDeleted {
			s.log.Info("Duplicate upload, touching existing file", "file_id", existing.FileID, "hash", contentHash[:8])
			if err := s.store.TouchFile(ctx, existing.FileID); err != nil {
				return nil, err
			}
			return &UploadResult{
				FileID:         existing.FileID,
				Filename:       filename,
				StoredFilename: existing.Address,
				Size:           size,
			}, nil
		}

		// Previously deleted content reappearing: write it back to
		// disk and repoint the row.
		stored, err := s.writeToDisk(content, ext)
		if err != nil {
			return nil, err
		}
		s.log.Info("Restoring previously deleted file", "file_id", existing.FileID, "stored", stored)
		if err := s.store.UpdateFileAddress(ctx, contentHash, stored); err != nil {
			return nil, err
		}
		return &UploadResult{
			FileID:         existing.FileID,
			Filename:       filename,
			StoredFilename: stored,
			Size:           size,
		}, nil
	}

	stored, err := s.writeToDisk(content, ext)
	if err != nil {
		return nil, err
	}

	textContent := ""
	if textLikeExtensions[ext] {
		textContent = parse.DecodeText(content)
	}

	created, err := s.store.CreateFile(ctx, &types.File{
		Filename:    filename,
		Type:        mimeForExt(ext),
		Size:        size,
		Content:     textContent,
		ContentHash: contentHash,
		Address:     stored,
		Author:      author,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Stored new file", "file_id", created.FileID, "filename", filename, "size", size)
	return &UploadResult{
		FileID:         created.FileID,
		Filename:       filename,
		StoredFilename: stored,
		Size:           size,
	}, nil
}

func (s *FileService) writeToDisk(content []byte, ext string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	stored := fmt.Sprintf("file-%s%s", uuid.New().String(), ext)
	path := filepath.Join(s.uploadDir, stored)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return stored, nil
}

func mimeForExt(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".mp4":
		return "video/mp4"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".txt", ".md", ".rst":
		return "text/plain"
	default:
		if textLikeExtensions[ext] {
			return "text/plain"
		}
		return "application/octet-stream"
	}
}
