// Package contextbuild fits the query, its attachment context, and
// retrieved local context into a model's token window using weighted
// capacity slices.
package contextbuild

import (
	"context"

	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/summarize"
	"github.com/yungbote/llm-gateway/internal/types"
)

// Counter counts tokens for the target provider/model.
type Counter interface {
	Count(text, provider, model string) (int, error)
}

// Compressor reduces text toward a token target. The summarizer
// satisfies this.
type Compressor interface {
	Summarize(ctx context.Context, text string, targetSize int, provider, model string) summarize.Result
}

// Params configure one assembly pass. Weights order is query, query
// context, local context.
type Params struct {
	MaxTokens        int
	Provider         string
	Model            string
	Weights          [3]int
	UseSummarization bool
}

// DefaultWeights gives the three components equal priority.
var DefaultWeights = [3]int{2, 2, 2}

type Builder struct {
	log        *logger.Logger
	counter    Counter
	compressor Compressor
}

func New(counter Counter, compressor Compressor, log *logger.Logger) *Builder {
	return &Builder{
		log:        log.With("component", "contextbuild"),
		counter:    counter,
		compressor: compressor,
	}
}

func (b *Builder) count(text, provider, model string) int {
	n, err := b.counter.Count(text, provider, model)
	if err != nil {
		// Unknown pairs degrade to a character estimate so assembly
		// still completes.
		b.log.Warn("Token count failed during assembly, estimating", "provider", provider, "model", model, "error", err)
		return len(text) / 4
	}
	return n
}

// Build fits the bundle into p.MaxTokens. When everything already
// fits, the input is returned untouched. Oversized components are
// summarized toward their capacity slice, or proportionally truncated
// when summarization is disabled or fails.
func (b *Builder) Build(ctx context.Context, bundle types.ContextBundle, p Params) types.ContextBundle {
	if p.Weights == [3]int{} {
		p.Weights = DefaultWeights
	}

	queryTokens := b.count(bundle.Query, p.Provider, p.Model)
	queryCtxTokens := b.count(bundle.QueryContext, p.Provider, p.Model)
	localCtxTokens := b.count(bundle.LocalContext, p.Provider, p.Model)
	total := queryTokens + queryCtxTokens + localCtxTokens

	b.log.Debug("Context component sizes",
		"query", queryTokens,
		"query_context", queryCtxTokens,
		"local_context", localCtxTokens,
		"total", total,
		"max", p.MaxTokens,
	)

	if total <= p.MaxTokens {
		return bundle
	}
	b.log.Warn("Context exceeds window, reducing", "total", total, "max", p.MaxTokens)

	// A query that alone overflows the window displaces everything
	// else.
	if queryTokens > p.MaxTokens {
		return types.ContextBundle{
			Query: b.reduce(ctx, bundle.Query, queryTokens, p.MaxTokens, p),
		}
	}

	w := p.Weights[0] + p.Weights[1] + p.Weights[2]
	capQuery := float64(p.Weights[0]) / float64(w) * float64(p.MaxTokens)
	capQueryCtx := float64(p.Weights[1]) / float64(w) * float64(p.MaxTokens)
	capLocalCtx := float64(p.Weights[2]) / float64(w) * float64(p.MaxTokens)

	var out types.ContextBundle

	if float64(queryTokens) <= capQuery {
		out.Query = bundle.Query
		capQueryCtx += capQuery - float64(queryTokens)
	} else {
		out.Query = b.reduce(ctx, bundle.Query, queryTokens, int(capQuery), p)
	}

	if float64(queryCtxTokens) <= capQueryCtx {
		out.QueryContext = bundle.QueryContext
		capLocalCtx += capQueryCtx - float64(queryCtxTokens)
	} else {
		out.QueryContext = b.reduce(ctx, bundle.QueryContext, queryCtxTokens, int(capQueryCtx), p)
	}

	if float64(localCtxTokens) <= capLocalCtx {
		out.LocalContext = bundle.LocalContext
	} else {
		out.LocalContext = b.reduce(ctx, bundle.LocalContext, localCtxTokens, int(capLocalCtx), p)
	}

	finalTotal := b.count(out.Query, p.Provider, p.Model) +
		b.count(out.QueryContext, p.Provider, p.Model) +
		b.count(out.LocalContext, p.Provider, p.Model)
	b.log.Info("Context assembly complete", "final_total", finalTotal, "max", p.MaxTokens)
	return out
}

// reduce shrinks text toward target tokens, preferring summarization
// and falling back to proportional character truncation.
func (b *Builder) reduce(ctx context.Context, text string, currentTokens, target int, p Params) string {
	if target <= 0 || text == "" {
		return ""
	}
	if p.UseSummarization && b.compressor != nil {
		res := b.compressor.Summarize(ctx, text, target, p.Provider, p.Model)
		// Only a summary that actually fits the slice may replace the
		// text; a partial (206) or failed pass falls through so the
		// budget still holds.
		if res.Status == 200 {
			return res.Content
		}
		b.log.Warn("Summarization fell short, truncating", "status", res.Status, "message", res.Message)
	}
	keep := int(float64(len(text)) * float64(target) / float64(currentTokens))
	if keep >= len(text) {
		return text
	}
	return text[:keep]
}
