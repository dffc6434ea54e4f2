package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/contextbuild"
	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/store"
	"github.com/yungbote/llm-gateway/internal/toolsel"
	"github.com/yungbote/llm-gateway/internal/types"
)

const systemPromptBase = "You are a helpful assistant. Use the information below to answer."

// apologyFallback is returned when the model call itself fails; the
// pipeline still persists it so the thread stays coherent.
const apologyFallback = "I apologize, but I encountered an error processing your request. Please try again later."

// Vectorizer is the ingestion surface the reasoner drives after
// persisting messages.
type Vectorizer interface {
	VectorizeFiles(ctx context.Context, threadID string, fileIDs []string)
	VectorizeMessage(ctx context.Context, threadID, messageID, role, text string)
}

// ContextRetriever supplies the local (vector) context for a query.
type ContextRetriever interface {
	Relevant(ctx context.Context, threadID, namespace, query string) string
}

// Enricher runs external tools for a query and renders their output.
type Enricher interface {
	Run(ctx context.Context, query string, d toolsel.Decision) string
}

// QueryClassifier decides which enrichment tools to run.
type QueryClassifier interface {
	Classify(ctx context.Context, query string) toolsel.Decision
}

// ReasonerHandler is the full retrieval-augmented path: it persists
// the conversation, vectorizes attachments, gathers attachment and
// vector and web context, fits everything into the model window, and
// completes with the reasoning model.
type ReasonerHandler struct {
	log          *logger.Logger
	store        store.Store
	llm          Chatter
	vectorizer   Vectorizer
	retriever    ContextRetriever
	classifier   QueryClassifier
	enricher     Enricher
	builder      *contextbuild.Builder
	model        string
	maxTokens    int
	costPerToken float64
}

type ReasonerDeps struct {
	Store        store.Store
	LLM          Chatter
	Vectorizer   Vectorizer
	Retriever    ContextRetriever
	Classifier   QueryClassifier
	Enricher     Enricher
	Builder      *contextbuild.Builder
	Model        string
	MaxTokens    int
	CostPerToken float64
}

func NewReasonerHandler(d ReasonerDeps, log *logger.Logger) *ReasonerHandler {
	return &ReasonerHandler{
		log:          log.With("handler", "reasoner", "model", d.Model),
		store:        d.Store,
		llm:          d.LLM,
		vectorizer:   d.Vectorizer,
		retriever:    d.Retriever,
		classifier:   d.Classifier,
		enricher:     d.Enricher,
		builder:      d.Builder,
		model:        d.Model,
		maxTokens:    d.MaxTokens,
		costPerToken: d.CostPerToken,
	}
}

func (h *ReasonerHandler) Complete(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, apierr.Validation(fmt.Errorf("no messages provided in request payload"))
	}

	threadID, err := resolveThread(ctx, h.store, req, h.model, h.log)
	if err != nil {
		return nil, err
	}
	h.log.Info("Starting reasoner completion", "thread_id", threadID, "messages", len(req.Messages))

	persisted := h.persistIncoming(ctx, threadID, req)

	query := latestUserQuery(persisted)
	if query == nil {
		return nil, apierr.Validation(fmt.Errorf("no user query found in messages"))
	}
	queryText := query.Content.Text

	bundle := types.ContextBundle{
		Query:        queryText,
		QueryContext: h.attachmentContext(ctx, query),
		LocalContext: h.retriever.Relevant(ctx, threadID, types.NamespaceFiles, queryText),
	}
	bundle.QueryContext = h.appendEnrichment(ctx, queryText, bundle.QueryContext)

	bundle = h.builder.Build(ctx, bundle, contextbuild.Params{
		MaxTokens:        h.maxTokens,
		Provider:         req.Provider,
		Model:            h.model,
		Weights:          contextbuild.DefaultWeights,
		UseSummarization: true,
	})

	system := systemPromptBase
	if bundle.LocalContext != "" {
		system += "\n\n[LOCAL DOCUMENT CONTEXT]\n" + bundle.LocalContext
	}
	user := bundle.Query
	if bundle.QueryContext != "" {
		user += "\n\n[QUERY CONTEXT]\n" + bundle.QueryContext
	}

	text, usage, err := h.llm.Chat(ctx, h.model, []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		h.log.Error("Model invocation failed, degrading to apology", "thread_id", threadID, "error", err)
		text = apologyFallback
		usage = Usage{}
	}
	if strings.TrimSpace(text) == "" {
		text = "I don't have a response at this time."
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
		// Reply persistence failing must not lose the completion.
		h.log.Error("Could not store assistant response", "thread_id", threadID, "error", err)
		return &Response{ThreadID: threadID, Content: text, TokensSpent: usage.TotalTokens, Cost: cost}, nil
	}

	h.vectorizer.VectorizeMessage(ctx, threadID, reply.MessageID, "assistant", text)
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

// persistIncoming stores each turn with its validated attachments and
// kicks off attachment vectorization. Persistence failures skip the
// turn rather than abort the request.
func (h *ReasonerHandler) persistIncoming(ctx context.Context, threadID string, req *Request) []types.Message {
	out := make([]types.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		fileIDs := h.validFileIDs(ctx, m.Attachments)

		created, err := h.store.CreateMessage(ctx, &types.Message{
			ThreadID: threadID,
			Role:     role,
			Content:  types.TextBlock(m.Content),
			Author:   authorForRole(role, req.Author),
			FileIDs:  fileIDs,
		})
		if err != nil {
			h.log.Warn("Could not persist incoming message", "thread_id", threadID, "role", role, "error", err)
			continue
		}
		out = append(out, *created)

		if len(fileIDs) > 0 {
			h.vectorizer.VectorizeFiles(ctx, threadID, fileIDs)
		}
	}
	return out
}

// validFileIDs drops attachment IDs that do not resolve to a stored
// file.
func (h *ReasonerHandler) validFileIDs(ctx context.Context, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := h.store.GetFile(ctx, id, false); err != nil {
			h.log.Warn("Attachment did not resolve, dropping", "file_id", id, "error", err)
			continue
		}
		valid = append(valid, id)
	}
	return valid
}

// attachmentContext concatenates the stored content of the query's
// attachments.
func (h *ReasonerHandler) attachmentContext(ctx context.Context, query *types.Message) string {
	if len(query.FileIDs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(query.FileIDs))
	for _, id := range query.FileIDs {
		f, err := h.store.GetFile(ctx, id, true)
		if err != nil {
			h.log.Warn("Could not load attachment content", "file_id", id, "error", err)
			continue
		}
		if f.Content != "" {
			parts = append(parts, f.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// appendEnrichment classifies the query and appends rendered tool
// output to the query context. Classification returning no tools
// leaves the context untouched.
func (h *ReasonerHandler) appendEnrichment(ctx context.Context, query, queryContext string) string {
	decision := h.classifier.Classify(ctx, query)
	if len(decision.Tools) == 0 && decision.WebSearch == "" {
		return queryContext
	}

	rendered := h.enricher.Run(ctx, query, decision)
	if strings.TrimSpace(rendered) == "" {
		return queryContext
	}
	if queryContext == "" {
		return rendered
	}
	return queryContext + "\n\n" + rendered
}

// latestUserQuery returns the most recent user turn.
func latestUserQuery(messages []types.Message) *types.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return &messages[i]
		}
	}
	return nil
}
