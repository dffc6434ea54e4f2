package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/httpx"
	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/observability"
)

const deepseekEndpoint = "https://api.deepseek.com/v1/chat/completions"

// completionTimeout bounds one model invocation. Reasoner responses
// can take minutes.
const completionTimeout = 300 * time.Second

// Usage is the provider's token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatMessage is one turn in the provider wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DeepseekClient calls the DeepSeek chat completions API.
type DeepseekClient struct {
	log        *logger.Logger
	apiKey     string
	endpoint   string
	metrics    *observability.Metrics
	httpClient *http.Client
	maxRetries int
}

func NewDeepseekClient(apiKey string, metrics *observability.Metrics, log *logger.Logger) *DeepseekClient {
	return &DeepseekClient{
		log:        log.With("client", "deepseek"),
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   deepseekEndpoint,
		metrics:    metrics,
		httpClient: &http.Client{Timeout: completionTimeout},
		maxRetries: 2,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Chat runs one completion and returns the text plus the provider's
// usage block. Every invocation is recorded with its latency and token
// counts.
func (c *DeepseekClient) Chat(ctx context.Context, model string, messages []ChatMessage) (string, Usage, error) {
	start := time.Now()
	text, usage, err := c.chat(ctx, model, messages)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.ObserveLLM(model, status, time.Since(start), usage.PromptTokens, usage.CompletionTokens)
	return text, usage, err
}

func (c *DeepseekClient) chat(ctx context.Context, model string, messages []ChatMessage) (string, Usage, error) {
	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.6,
		MaxTokens:   8000,
	}

	backoff := time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", Usage{}, ctx.Err()
		}
		text, usage, err := c.chatOnce(ctx, body)
		if err == nil {
			return text, usage, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			var se *httpx.StatusError
			if errors.As(err, &se) {
				return "", Usage{}, apierr.Upstream(se.StatusCode, err)
			}
			return "", Usage{}, apierr.Upstream(http.StatusBadGateway, err)
		}
		sleepFor := httpx.Jitter(backoff)
		c.log.Warn("DeepSeek request retrying", "model", model, "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		select {
		case <-ctx.Done():
			return "", Usage{}, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return "", Usage{}, fmt.Errorf("unreachable retry loop")
}

func (c *DeepseekClient) chatOnce(ctx context.Context, body chatRequest) (string, Usage, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", Usage{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return "", Usage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Usage{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", Usage{}, &httpx.StatusError{StatusCode: resp.StatusCode, Body: httpx.Truncate(string(raw), 512)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", Usage{}, fmt.Errorf("deepseek decode: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("deepseek returned no choices")
	}
	return parsed.Choices[0].Message.Content, parsed.Usage, nil
}
