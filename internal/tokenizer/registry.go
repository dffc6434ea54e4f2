// Package tokenizer counts tokens per provider/model pair for budget
// and usage accounting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/logger"
)

// counter counts tokens for one model. Implementations return an
// error only for setup failures; callers fall back to an estimate.
type counter func(text string) (int, error)

// Registry resolves provider/model to a counter. Unknown providers
// and models are not-found errors; a counter that fails internally
// degrades to a character-based estimate instead of erroring.
type Registry struct {
	log       *logger.Logger
	providers map[string]map[string]counter
}

func NewRegistry(log *logger.Logger) *Registry {
	r := &Registry{
		log:       log.With("component", "tokenizer"),
		providers: map[string]map[string]counter{},
	}

	r.providers["openai"] = map[string]counter{
		"gpt-4":         tiktokenForModel("gpt-4"),
		"gpt-3.5-turbo": tiktokenForModel("gpt-3.5-turbo"),
	}
	// DeepSeek's public tokenizer tracks cl100k closely enough for
	// budget math.
	r.providers["deepseek"] = map[string]counter{
		"deepseek-chat":     tiktokenForEncoding("cl100k_base"),
		"deepseek-reasoner": tiktokenForEncoding("cl100k_base"),
	}
	r.providers["google"] = map[string]counter{
		"gemini-2.0-flash-001": geminiEstimate,
	}
	return r
}

// Count returns the token count of text under the given model. An
// internal tokenizer failure logs and returns the len/4 estimate with
// a nil error so budget math keeps moving.
func (r *Registry) Count(text, provider, model string) (int, error) {
	models, ok := r.providers[provider]
	if !ok {
		return 0, apierr.NotFound(fmt.Errorf("requested provider not found: %s", provider))
	}
	count, ok := models[model]
	if !ok {
		return 0, apierr.NotFound(fmt.Errorf("requested model not found within provider %s: %s", provider, model))
	}
	if text == "" {
		return 0, nil
	}
	n, err := count(text)
	if err != nil {
		est := len(text) / 4
		r.log.Warn("Tokenizer failed, using estimate", "provider", provider, "model", model, "estimate", est, "error", err)
		return est, nil
	}
	return n, nil
}

// Supported reports whether the pair resolves without counting.
func (r *Registry) Supported(provider, model string) bool {
	models, ok := r.providers[provider]
	if !ok {
		return false
	}
	_, ok = models[model]
	return ok
}

func tiktokenForModel(model string) counter {
	return func(text string) (int, error) {
		enc, err := tiktoken.EncodingForModel(model)
		if err != nil {
			return 0, err
		}
		return len(enc.Encode(text, nil, nil)), nil
	}
}

func tiktokenForEncoding(name string) counter {
	return func(text string) (int, error) {
		enc, err := tiktoken.GetEncoding(name)
		if err != nil {
			return 0, err
		}
		return len(enc.Encode(text, nil, nil)), nil
	}
}

// geminiEstimate avoids a network round trip per count; Gemini's
// tokenizer runs close to four characters per token on prose.
func geminiEstimate(text string) (int, error) {
	if len(text) == 0 {
		return 0, nil
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n, nil
}
