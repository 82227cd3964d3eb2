// Package llm talks to an OpenAI compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

const defaultModel = "gpt-4o-mini"

// ErrEmptyCompletion is returned when the service answers without content.
var ErrEmptyCompletion = errors.New("completion has no content")

// StatusError is a non-2xx answer from the completion service.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("completion service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion service error (status %d)", e.StatusCode)
}

// Config holds the completion client settings.
type Config struct {
	APIKey     string
	Model      string        // default gpt-4o-mini
	BaseURL    string        // optional, provider default when empty
	MaxRetries int           // SDK transport retries, negative = SDK default
	Timeout    time.Duration // HTTP timeout
	HTTPClient *http.Client  // optional (tests)
}

// Client implements importer.Completer with the official OpenAI SDK.
type Client struct {
	model  string
	client openai.Client
	log    logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		model:  cfg.Model,
		client: openai.NewClient(opts...),
		log:    log,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends one system and one user message at temperature 0 and
// returns the first choice's content.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		err = mapError(err)
		c.log.Warn("completion failed", logger.String("model", c.model), logger.Duration("elapsed", time.Since(start)), logger.Error(err))
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}

	c.log.Debug("completion done",
		logger.String("model", c.model),
		logger.Duration("elapsed", time.Since(start)),
		logger.Int64("prompt_tokens", resp.Usage.PromptTokens),
		logger.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return content, nil
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return err
}
