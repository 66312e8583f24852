// Package clients talks to the services around the core over HTTP: the
// engine cluster, the knowledge service, the bot orchestrator and
// live-game. Every call goes through the service's circuit breaker.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chessforge/gamecore/internal/infrastructure/breaker"
	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const maxResponseSize = 1 << 20

// jsonClient issues JSON requests against one base URL.
type jsonClient struct {
	baseURL string
	http    *http.Client
	breaker *breaker.Breaker
	logger  logger.Interface
}

func newJSONClient(baseURL string, timeout time.Duration, b *breaker.Breaker, log logger.Interface) *jsonClient {
	return &jsonClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: b,
		logger:  log,
	}
}

// do sends body (when non-nil) and decodes a 2xx response into out. Non-2xx
// responses become AppErrors carrying the upstream status, so 5xx trips the
// breaker and 4xx does not.
func (c *jsonClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.roundTrip(ctx, method, path, query, body, out)
	})
}

func (c *jsonClient) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseSize)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(limited, 512))
		return upstreamError(resp.StatusCode, method+" "+path, string(snippet))
	}
	if out == nil {
		return nil
	}
	var raw json.RawMessage
	if err := json.NewDecoder(limited).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(unwrapEnvelope(raw), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// unwrapEnvelope returns the data member of a {success, data} response and
// the body unchanged otherwise.
func unwrapEnvelope(raw json.RawMessage) json.RawMessage {
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &env) != nil || env.Success == nil || len(env.Data) == 0 {
		return raw
	}
	return env.Data
}

func upstreamError(status int, call, body string) error {
	detail := fmt.Sprintf("%s returned %d: %s", call, status, strings.TrimSpace(body))
	switch {
	case status == http.StatusNotFound:
		return errors.NewNotFoundError("upstream resource not found", detail)
	case status == http.StatusConflict:
		return errors.NewConflictError("upstream conflict", detail)
	case status == http.StatusTooManyRequests:
		return errors.NewRateLimitError("upstream rate limited", detail)
	case status >= 500:
		return errors.NewUnavailableError("upstream unavailable", detail)
	default:
		return errors.NewValidationError("upstream rejected request", detail)
	}
}
