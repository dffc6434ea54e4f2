package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/types"
)

func (c *Client) CreateMessage(ctx context.Context, m *types.Message) (*types.Message, error) {
	if m == nil || m.ThreadID == "" || m.Role == "" {
		return nil, apierr.Validation(fmt.Errorf("message requires thread_id and role"))
	}
	var rows []types.Message
	if err := c.do(ctx, http.MethodPost, "/messages", nil, m, &rows); err != nil {
		return nil, err
	}
	return firstOf(rows, "/messages")
}

// ListThreadMessages returns a thread's messages oldest first.
func (c *Client) ListThreadMessages(ctx context.Context, threadID string) ([]types.Message, error) {
	q := url.Values{}
	q.Set("thread_id", "eq."+threadID)
	q.Set("order", "created_at.asc")
	var rows []types.Message
	if err := c.do(ctx, http.MethodGet, "/messages", q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	if messageID == "" {
		return apierr.Validation(fmt.Errorf("message_id is required"))
	}
	q := url.Values{}
	q.Set("message_id", "eq."+messageID)
	return c.do(ctx, http.MethodDelete, "/messages", q, nil, nil)
}
