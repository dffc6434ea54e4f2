// Package summarize compresses oversized context toward a token
// target using an LLM, iterating until the target or a pass limit is
// reached.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/llm-gateway/internal/logger"
)

// MaxTokenLimit is the hard ceiling on input size; anything larger is
// rejected outright.
const MaxTokenLimit = 1_000_000

const maxAttempts = 3

const summarizeTimeout = 30 * time.Second

// LLM is the completion surface the summarizer drives.
type LLM interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// Counter counts tokens for the provider/model the budget targets.
type Counter interface {
	Count(text, provider, model string) (int, error)
}

// Result mirrors the pipeline's compression outcome. Status follows
// HTTP conventions: 200 done, 204 empty input, 206 best effort that
// missed the target, 400 over the hard limit, 500 upstream failure.
type Result struct {
	Status       int
	Message      string
	Content      string
	OriginalSize int
	ReducedSize  int
}

// Ok reports whether Content met the target. Partial results carry
// content too, but callers enforcing a hard budget must not treat them
// as done.
func (r Result) Ok() bool { return r.Status == 200 || r.Status == 204 }

type Summarizer struct {
	log     *logger.Logger
	llm     LLM
	counter Counter
}

func New(llm LLM, counter Counter, log *logger.Logger) *Summarizer {
	return &Summarizer{
		log:     log.With("component", "summarize"),
		llm:     llm,
		counter: counter,
	}
}

// Summarize reduces text under targetSize tokens as counted for the
// given provider/model. Up to three passes run, each feeding the
// previous pass's output back in; if the target is still not met the
// best effort is returned with a partial message.
func (s *Summarizer) Summarize(ctx context.Context, text string, targetSize int, provider, model string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{
			Status:  204,
			Message: "Provided context is empty; no summarization necessary.",
		}
	}

	originalSize, err := s.counter.Count(text, provider, model)
	if err != nil {
		return Result{Status: 500, Message: err.Error()}
	}
	if originalSize > MaxTokenLimit {
		return Result{
			Status:       400,
			Message:      fmt.Sprintf("Context exceeds the maximum limit of %d tokens. Please reduce the input size.", MaxTokenLimit),
			OriginalSize: originalSize,
		}
	}
	if originalSize <= targetSize {
		return Result{
			Status:       200,
			Message:      "Context already meets the target size requirement.",
			Content:      text,
			OriginalSize: originalSize,
			ReducedSize:  originalSize,
		}
	}

	current := text
	currentSize := originalSize
	for attempt := 0; attempt < maxAttempts; attempt++ {
		system := fmt.Sprintf(
			"Summarize the provided context from current %d to %d by distilling all important details, relationships, and nuances into a concise and cohesive summary. Ensure that no vital information is omitted while being concise and clear.",
			currentSize, targetSize,
		)

		callCtx, cancel := context.WithTimeout(ctx, summarizeTimeout)
		summarized, err := s.llm.GenerateText(callCtx, system, current)
		cancel()
		if err != nil {
			s.log.Error("Summarization pass failed", "attempt", attempt+1, "error", err)
			return Result{
				Status:       500,
				Message:      fmt.Sprintf("Internal server error occurred: %v. Please try again later.", err),
				OriginalSize: originalSize,
			}
		}

		currentSize, err = s.counter.Count(summarized, provider, model)
		if err != nil {
			return Result{Status: 500, Message: err.Error(), OriginalSize: originalSize}
		}
		if currentSize <= targetSize {
			s.log.Info("Summarized context", "original", originalSize, "reduced", currentSize, "passes", attempt+1)
			return Result{
				Status:       200,
				Message:      "Successfully summarized the context.",
				Content:      summarized,
				OriginalSize: originalSize,
				ReducedSize:  currentSize,
			}
		}
		current = summarized
	}

	s.log.Warn("Summarization did not reach target", "original", originalSize, "reduced", currentSize, "target", targetSize)
	return Result{
		Status:       206,
		Message:      fmt.Sprintf("Partially summarized context. Reduced from %d to %d tokens, but didn't reach target of %d.", originalSize, currentSize, targetSize),
		Content:      current,
		OriginalSize: originalSize,
		ReducedSize:  currentSize,
	}
}
