package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/types"
)

func (c *Client) CreateFile(ctx context.Context, f *types.File) (*types.File, error) {
	if f == nil || f.ContentHash == "" || f.Filename == "" {
		return nil, apierr.Validation(fmt.Errorf("file requires filename and content_hash"))
	}
	var rows []types.File
	if err := c.do(ctx, http.MethodPost, "/files", nil, f, &rows); err != nil {
		return nil, err
	}
	return firstOf(rows, "/files")
}

// GetFile fetches a file row. When includeContent is false the content
// column is excluded, which keeps large text files off the wire. The
// returned row's hash is re-checked against stored content when both
// are present; a mismatch is logged and the row returned anyway.
func (c *Client) GetFile(ctx context.Context, fileID string, includeContent bool) (*types.File, error) {
	q := url.Values{}
	q.Set("file_id", "eq."+fileID)
	if !includeContent {
		q.Set("select", "file_id,filename,type,size,content_hash,address,author,created_at,updated_at")
	}
	var rows []types.File
	if err := c.do(ctx, http.MethodGet, "/files", q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound(fmt.Errorf("file %s not found", fileID))
	}
	f := &rows[0]
	if includeContent && f.Content != "" {
		if got := HashBytes([]byte(f.Content)); got != f.ContentHash {
			c.log.Warn("Stored file content does not match recorded hash",
				"file_id", f.FileID,
				"recorded", f.ContentHash,
				"computed", got,
			)
		}
	}
	return f, nil
}

// FindFileByHash returns nil, nil when no file carries the hash.
func (c *Client) FindFileByHash(ctx context.Context, contentHash string) (*types.File, error) {
	q := url.Values{}
	q.Set("content_hash", "eq."+contentHash)
	var rows []types.File
	if err := c.do(ctx, http.MethodGet, "/files", q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// TouchFile bumps updated_at so duplicate uploads register as activity.
func (c *Client) TouchFile(ctx context.Context, fileID string) error {
	q := url.Values{}
	q.Set("file_id", "eq."+fileID)
	patch := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339)}
	return c.do(ctx, http.MethodPatch, "/files", q, patch, nil)
}

// DeleteFile retires a file by pointing its address at the deleted
// sentinel. The row itself stays so a re-upload of the same bytes can
// be restored through its content hash.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return apierr.Validation(fmt.Errorf("file_id is required"))
	}
	q := url.Values{}
	q.Set("file_id", "eq."+fileID)
	patch := map[string]any{
		"address":    types.AddressDeleted,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	return c.do(ctx, http.MethodPatch, "/files", q, patch, nil)
}

// UpdateFileAddress repoints every row with the hash at a new stored
// filename. Used when a previously deleted upload reappears.
func (c *Client) UpdateFileAddress(ctx context.Context, contentHash, address string) error {
	q := url.Values{}
	q.Set("content_hash", "eq."+contentHash)
	patch := map[string]any{
		"address":    address,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	return c.do(ctx, http.MethodPatch, "/files", q, patch, nil)
}
