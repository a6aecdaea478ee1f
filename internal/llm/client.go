// Package llm wraps the chat-completion backend that turns retrieved
// context into answers. Any OpenAI-compatible endpoint works; the default
// targets OpenRouter.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultAPIKeyEnv   = "OPENROUTER_API_KEY"
	defaultModel       = "nex-agi/deepseek-v3.1-nex-n1:free"
	defaultTemperature = 0.3
	defaultMaxTokens   = 300
	defaultTimeout     = 60 * time.Second
)

// Config configures the generation client. The bearer key is read from the
// named environment variable and never logged.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// GenerationError reports a failed completion call. A non-zero StatusCode
// means the backend answered with a non-2xx status and Detail carries the
// response body; StatusCode 0 means the transport failed before any
// response arrived.
type GenerationError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation backend returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("generation backend unreachable: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Client calls a chat-completions endpoint.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = defaultAPIKeyEnv
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	apiCfg := openai.DefaultConfig(key)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends a system+user message pair and returns the generated text.
// Failures come back as *GenerationError so callers can tell a backend
// rejection from an unreachable backend.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &GenerationError{StatusCode: apiErr.HTTPStatusCode, Detail: apiErr.Message, Err: err}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &GenerationError{StatusCode: reqErr.HTTPStatusCode, Detail: string(reqErr.Body), Err: err}
		}
		return "", &GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Err: errors.New("backend returned no choices")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
