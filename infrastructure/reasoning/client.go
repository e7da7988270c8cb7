// Package reasoning implements the outbound client for the language-model
// reasoning service over an OpenAI-compatible chat completions API.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	pkgerrors "trackline-backend/pkg/errors"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 1 * time.Second
	completionsPath       = "/v1/chat/completions"
)

// Config holds the connection settings for the reasoning service
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
}

// Client calls the reasoning service with bounded retries. Transient
// failures (429, 5xx, timeouts) are retried with exponential backoff;
// everything else fails immediately.
type Client struct {
	baseURL        string
	apiKey         string
	model          string
	httpClient     *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	logger         *zap.Logger
}

// NewClient creates a reasoning client from config
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, pkgerrors.NewValidationError("reasoning base URL cannot be empty")
	}
	if cfg.Model == "" {
		return nil, pkgerrors.NewValidationError("reasoning model cannot be empty")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		httpClient:     &http.Client{Timeout: timeout},
		maxAttempts:    maxAttempts,
		initialBackoff: defaultInitialBackoff,
		logger:         logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the prompts and returns the completion text, retrying
// transient upstream failures up to the attempt limit
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	backoff := c.initialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		content, err := c.doRequest(ctx, systemPrompt, userPrompt)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if !pkgerrors.IsTransient(err) {
			c.logger.Warn("reasoning request failed permanently",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return "", err
		}

		if attempt < c.maxAttempts {
			c.logger.Warn("reasoning request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", pkgerrors.NewTimeoutError("reasoning request").WithCause(ctx.Err())
			}
			backoff *= 2
		}
	}

	return "", pkgerrors.Wrapf(lastErr, "reasoning service unavailable after %d attempts", c.maxAttempts)
}

func (c *Client) doRequest(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", pkgerrors.NewInternalError("failed to encode reasoning request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.NewInternalError("failed to build reasoning request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Client timeouts and context deadlines count as transient
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", pkgerrors.NewTimeoutError("reasoning request").WithCause(err)
		}
		return "", pkgerrors.NewUnavailableError("reasoning service").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pkgerrors.NewUnavailableError("reasoning service").WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", pkgerrors.NewRateLimitError("reasoning service")
	case resp.StatusCode >= 500:
		return "", pkgerrors.NewUnavailableError("reasoning service").WithDetails(map[string]interface{}{
			"status": resp.StatusCode,
		})
	default:
		return "", pkgerrors.NewExternalError("reasoning service",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncateBody(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", pkgerrors.NewExternalError("reasoning service", fmt.Errorf("malformed response: %w", err))
	}
	if parsed.Error != nil {
		return "", pkgerrors.NewExternalError("reasoning service", fmt.Errorf("upstream error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", pkgerrors.NewExternalError("reasoning service", errors.New("empty completion"))
	}

	return parsed.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
