package completion

import (
	"context"
	"fmt"

	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/store"
	"github.com/yungbote/llm-gateway/internal/types"
)

// Chatter is the provider call surface the handlers share.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ChatMessage) (string, Usage, error)
}

// ChatHandler is the plain conversational path: persist the turns,
// call the model with them verbatim, persist and return the reply. No
// retrieval or enrichment happens here.
type ChatHandler struct {
	log          *logger.Logger
	store        store.Store
	llm          Chatter
	model        string
	costPerToken float64
}

func NewChatHandler(st store.Store, llm Chatter, model string, costPerToken float64, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		log:          log.With("handler", "chat", "model", model),
		store:        st,
		llm:          llm,
		model:        model,
		costPerToken: costPerToken,
	}
}

func (h *ChatHandler) Complete(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided in request payload")
	}

	threadID, err := resolveThread(ctx, h.store, req, h.model, h.log)
	if err != nil {
		return nil, err
	}

	wire := make([]ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		if _, err := h.store.CreateMessage(ctx, &types.Message{
			ThreadID: threadID,
			Role:     role,
			Content:  types.TextBlock(m.Content),
			Author:   authorForRole(role, req.Author),
		}); err != nil {
			h.log.Warn("Could not persist incoming message", "thread_id", threadID, "error", err)
		}
		wire = append(wire, ChatMessage{Role: role, Content: m.Content})
	}

	text, usage, err := h.llm.Chat(ctx, h.model, wire)
	if err != nil {
		return nil, err
	}

	cost := float64(usage.TotalTokens) * h.costPerToken
	reply, err := h.store.CreateMessage(ctx, &types.Message{
		ThreadID:    threadID,
		Role:        "assistant",
		Content:     types.TextBlock(text),
		Author:      assistantAuthor(),
		TokensSpent: usage.TotalTokens,
		Cost:        cost,
	})
	if err != nil {
		return nil, err
	}
	if err := h.store.AddThreadUsage(ctx, threadID, usage.TotalTokens, cost); err != nil {
		h.log.Warn("Could not record thread usage", "thread_id", threadID, "error", err)
	}

	return &Response{
		ThreadID:    threadID,
		MessageID:   reply.MessageID,
		Content:     text,
		TokensSpent: usage.TotalTokens,
		Cost:        cost,
	}, nil
}

// resolveThread reuses a verified existing thread or creates a new
// one. An unknown thread_id falls through to creation rather than
// failing the request.
func resolveThread(ctx context.Context, st store.Store, req *Request, model string, log *logger.Logger) (string, error) {
	if req.ThreadID != "" {
		if _, err := st.GetThread(ctx, req.ThreadID); err == nil {
			return req.ThreadID, nil
		}
		log.Info("Provided thread not found, creating new one", "thread_id", req.ThreadID)
	}
	t, err := st.CreateThread(ctx, &types.Thread{
		Model:    model,
		Provider: req.Provider,
		Purpose:  req.Purpose,
		Author:   req.Author,
	})
	if err != nil {
		return "", err
	}
	return t.ThreadID, nil
}

func authorForRole(role string, user *types.Author) *types.Author {
	switch role {
	case "system":
		return &types.Author{ID: "system", Name: "System"}
	case "assistant":
		return assistantAuthor()
	default:
		return user
	}
}

func assistantAuthor() *types.Author {
	return &types.Author{ID: "assistant", Name: "AI Assistant"}
}
