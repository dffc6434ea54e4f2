package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/httpx"
	"github.com/yungbote/llm-gateway/internal/logger"
)

// tokenTTL is how long a minted service token is valid. Tokens are
// re-minted shortly before expiry.
const tokenTTL = time.Hour

// Client talks to the PostgREST-style persistence backend. Every call
// carries a short-lived HS256 token with role "api".
type Client struct {
	log        *logger.Logger
	baseURL    string
	secret     []byte
	httpClient *http.Client
	maxRetries int

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient never fails: a client built without a base URL or secret
// comes up disabled and reports the missing configuration on every
// call instead of blocking startup.
func NewClient(baseURL, secret string, log *logger.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &Client{
		log:        log.With("client", "store"),
		baseURL:    baseURL,
		secret:     []byte(strings.TrimSpace(secret)),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
	}
}

func (c *Client) configured() bool {
	return c.baseURL != "" && len(c.secret) > 0
}

func (c *Client) serviceToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if c.token != "" && now.Before(c.tokenExp.Add(-time.Minute)) {
		return c.token, nil
	}
	claims := jwt.MapClaims{
		"role": "api",
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	c.token = signed
	c.tokenExp = now.Add(tokenTTL)
	return signed, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return nil, nil, err
	}
	token, err := c.serviceToken()
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

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

// do runs a request with bounded retries on transient failures and
// decodes the representation into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if !c.configured() {
		return apierr.Upstream(http.StatusServiceUnavailable, fmt.Errorf("persistence backend not configured"))
	}
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, query, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return apierr.Internal(fmt.Errorf("decode %s %s: %w", method, path, uErr))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return c.mapError(path, err)
		}

		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Persistence request retrying",
			"method", method,
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

func (c *Client) mapError(path string, err error) error {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusNotFound:
			return apierr.NotFound(fmt.Errorf("%s: %w", path, err))
		case http.StatusConflict:
			return apierr.Integrity(fmt.Errorf("%s: %w", path, err))
		default:
			return apierr.Upstream(se.StatusCode, fmt.Errorf("%s: %w", path, err))
		}
	}
	return apierr.Upstream(http.StatusBadGateway, fmt.Errorf("%s: %w", path, err))
}

// firstOf unwraps PostgREST's array representation into a single row.
func firstOf[T any](rows []T, path string) (*T, error) {
	if len(rows) == 0 {
		return nil, apierr.NotFound(fmt.Errorf("%s: empty representation", path))
	}
	return &rows[0], nil
}
