// Package completion routes chat completion requests to provider and
// model specific handlers and runs the retrieval-augmented pipeline.
package completion

import (
	"context"

	"github.com/yungbote/llm-gateway/internal/types"
)

// IncomingMessage is one turn of the client's conversation payload.
// Attachments carry file IDs from prior uploads.
type IncomingMessage struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

// Request is the parsed completion payload.
type Request struct {
	Provider string            `json:"provider"`
	Model    string            `json:"model"`
	Purpose  string            `json:"purpose"`
	ThreadID string            `json:"thread_id,omitempty"`
	Author   *types.Author     `json:"author,omitempty"`
	Messages []IncomingMessage `json:"messages"`
}

// Response is what every handler returns to the transport layer.
type Response struct {
	ThreadID    string  `json:"thread_id"`
	MessageID   string  `json:"message_id"`
	Content     string  `json:"content"`
	TokensSpent int     `json:"tokens_spent"`
	Cost        float64 `json:"cost"`
}

// Handler serves one provider/model pair.
type Handler interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

type handlerKey struct {
	provider string
	model    string
}

// Registry maps provider/model pairs to handlers.
type Registry struct {
	handlers map[handlerKey]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[handlerKey]Handler{}}
}

func (r *Registry) Register(provider, model string, h Handler) {
	r.handlers[handlerKey{provider: provider, model: model}] = h
}

// Lookup returns the handler for the pair, or nil.
func (r *Registry) Lookup(provider, model string) Handler {
	return r.handlers[handlerKey{provider: provider, model: model}]
}
