package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hpungsan/workboard/internal/errors"
	"github.com/hpungsan/workboard/internal/logger"
)

// maxResponseBytes caps how much of a completion response is read.
const maxResponseBytes = 4 << 20

// ErrEmptyResponse is returned when the endpoint answers 2xx with no choices.
var ErrEmptyResponse = stderrors.New("chat completion returned no choices")

// Defaults for an unconfigured client.
const (
	DefaultBaseURL     = "https://api.cerebras.ai/v1"
	DefaultModel       = "llama-3.3-70b"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.3
	DefaultTimeout     = 30 * time.Second
)

// ClientConfig holds the settings for a chat-completion client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// RequestsPerMinute throttles outgoing calls; 0 disables the limiter.
	RequestsPerMinute int

	// KeyEnv names the environment variable the key came from, for the
	// missing-credentials message.
	KeyEnv string

	// Observe, when set, is told the outcome of every request
	// ("ok", "http_error", "transport_error", "empty", "decode_error").
	Observe func(outcome string)
}

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	limiter     *rate.Limiter
	observe     func(string)
	log         *logger.Logger
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates a client. A missing API key is fatal: the returned
// error has code MISSING_CREDENTIALS.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		env := cfg.KeyEnv
		if env == "" {
			env = "WORKBOARD_API_KEY"
		}
		return nil, errors.NewMissingCredentials(env)
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		observe:     cfg.Observe,
		log:         log.With("component", "llm"),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.temperature < 0 {
		c.temperature = DefaultTemperature
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.httpClient = &http.Client{Timeout: timeout}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c, nil
}

// Complete sends the conversation and returns the first choice's content.
// Transport failures and non-2xx statuses come back as UPSTREAM errors.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.NewUpstream(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("transport_error")
		c.log.Warnw("chat completion request failed", "error", err)
		return "", errors.NewUpstream(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		c.record("transport_error")
		return "", errors.NewUpstream(fmt.Errorf("read response: %w", err))
	}
	if len(respBody) > maxResponseBytes {
		c.record("decode_error")
		return "", errors.NewUpstream(fmt.Errorf("response exceeds %d bytes", maxResponseBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record("http_error")
		c.log.Warnw("chat completion returned error status",
			"status", resp.StatusCode, "body", truncate(string(respBody), 300))
		return "", errors.NewUpstream(fmt.Errorf("API request failed: %d", resp.StatusCode))
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.record("decode_error")
		return "", errors.NewUpstream(fmt.Errorf("decode response: %w", err))
	}
	if parsed.Error != nil {
		c.record("http_error")
		return "", errors.NewUpstream(fmt.Errorf("API error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		c.record("empty")
		return "", errors.NewUpstream(ErrEmptyResponse)
	}

	c.record("ok")
	c.log.Debugw("chat completion", "messages", len(messages), "duration_ms", time.Since(start).Milliseconds())
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) record(outcome string) {
	if c.observe != nil {
		c.observe(outcome)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
