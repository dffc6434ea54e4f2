package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/types"
)

func (c *Client) CreateThread(ctx context.Context, t *types.Thread) (*types.Thread, error) {
	if t == nil || t.Model == "" || t.Provider == "" {
		return nil, apierr.Validation(fmt.Errorf("thread requires model and provider"))
	}
	var rows []types.Thread
	if err := c.do(ctx, http.MethodPost, "/threads", nil, t, &rows); err != nil {
		return nil, err
	}
	return firstOf(rows, "/threads")
}

func (c *Client) GetThread(ctx context.Context, threadID string) (*types.Thread, error) {
	q := url.Values{}
	q.Set("thread_id", "eq."+threadID)
	var rows []types.Thread
	if err := c.do(ctx, http.MethodGet, "/threads", q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound(fmt.Errorf("thread %s not found", threadID))
	}
	return &rows[0], nil
}

// DeleteThread removes a thread. The backend cascades the delete to
// the thread's messages and vectors, so no orphans survive.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if threadID == "" {
		return apierr.Validation(fmt.Errorf("thread_id is required"))
	}
	q := url.Values{}
	q.Set("thread_id", "eq."+threadID)
	return c.do(ctx, http.MethodDelete, "/threads", q, nil, nil)
}

// AddThreadUsage folds one completion's token and cost totals into the
// thread's running counters.
func (c *Client) AddThreadUsage(ctx context.Context, threadID string, tokens int, cost float64) error {
	if tokens == 0 && cost == 0 {
		return nil
	}
	t, err := c.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("thread_id", "eq."+threadID)
	patch := map[string]any{
		"tokens_spent": t.TokensSpent + tokens,
		"cost":         t.Cost + cost,
	}
	return c.do(ctx, http.MethodPatch, "/threads", q, patch, nil)
}
