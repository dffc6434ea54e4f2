package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
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
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client wraps the Gemini REST API for text generation, structured
// output, multimodal extraction, and embeddings.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

// NewClient never fails: without an API key the client comes up
// disabled and every call reports the missing key, so dependents
// degrade instead of blocking startup.
func NewClient(apiKey string, log *logger.Logger) *Client {
	return &Client{
		log:        log.With("client", "gemini"),
		baseURL:    defaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
		model:      "gemini-2.0-flash-001",
		httpClient: &http.Client{Timeout: 120 * time.Second},
		maxRetries: 3,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	TopK             int            `json:"topK,omitempty"`
	TopP             float64        `json:"topP,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (c *Client) do(ctx context.Context, path string, body any, out any) error {
	if !c.Configured() {
		return apierr.Upstream(http.StatusServiceUnavailable, fmt.Errorf("gemini api key not configured"))
	}
	backoff := time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return apierr.Internal(fmt.Errorf("gemini decode: %w", uErr))
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			var se *httpx.StatusError
			if errors.As(err, &se) {
				return apierr.Upstream(se.StatusCode, err)
			}
			return apierr.Upstream(http.StatusBadGateway, err)
		}
		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 15*time.Second))
		c.log.Warn("Gemini request retrying",
			"path", path,
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *Client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	u := c.baseURL + path + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{StatusCode: resp.StatusCode, Body: httpx.Truncate(string(raw), 512)}
	}
	return resp, raw, nil
}

func (r *generateResponse) text() (string, error) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// GenerateText runs a plain text completion on the default flash model.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: user}}}},
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	var resp generateResponse
	if err := c.do(ctx, "/models/"+c.model+":generateContent", req, &resp); err != nil {
		return "", err
	}
	return resp.text()
}

// GenerateJSON constrains the completion to the given response schema
// and returns the raw JSON payload.
func (c *Client) GenerateJSON(ctx context.Context, system, user string, schema map[string]any) (json.RawMessage, error) {
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: user}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	var resp generateResponse
	if err := c.do(ctx, "/models/"+c.model+":generateContent", req, &resp); err != nil {
		return nil, err
	}
	text, err := resp.text()
	if err != nil {
		return nil, err
	}
	text = stripCodeFence(text)
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("gemini structured output is not valid JSON: %s", httpx.Truncate(text, 200))
	}
	return json.RawMessage(text), nil
}

// GenerateFromBytes sends raw media inline alongside an extraction
// instruction and returns the extracted text. The schema pins the
// model to a single file_content field.
func (c *Client) GenerateFromBytes(ctx context.Context, mimeType string, data []byte, instruction string) (string, error) {
	temp := 0.2
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: instruction},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
			},
		}},
		GenerationConfig: &generationConfig{
			Temperature:      &temp,
			TopK:             40,
			TopP:             0.95,
			MaxOutputTokens:  8192,
			ResponseMimeType: "application/json",
			ResponseSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_content": map[string]any{"type": "string"},
				},
				"required": []string{"file_content"},
			},
		},
	}
	var resp generateResponse
	if err := c.do(ctx, "/models/"+c.model+":generateContent", req, &resp); err != nil {
		return "", err
	}
	text, err := resp.text()
	if err != nil {
		return "", err
	}
	var parsed struct {
		FileContent string `json:"file_content"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &parsed); err != nil {
		return "", fmt.Errorf("gemini extraction payload: %w", err)
	}
	return parsed.FileContent, nil
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

// embedResponse tolerates the response shapes the embedding endpoints
// have shipped: a single embedding object or a one-element list.
type embedResponse struct {
	Embedding *struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// EmbedValues embeds one text with the named embedding model.
func (c *Client) EmbedValues(ctx context.Context, model, text string) ([]float64, error) {
	req := embedRequest{
		Model:   "models/" + model,
		Content: content{Parts: []part{{Text: text}}},
	}
	var resp embedResponse
	if err := c.do(ctx, "/models/"+model+":embedContent", req, &resp); err != nil {
		return nil, err
	}
	if resp.Embedding != nil && len(resp.Embedding.Values) > 0 {
		return resp.Embedding.Values, nil
	}
	if len(resp.Embeddings) > 0 && len(resp.Embeddings[0].Values) > 0 {
		return resp.Embeddings[0].Values, nil
	}
	return nil, fmt.Errorf("gemini embedding response contained no values")
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
