package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig configures the hosted Claude backend.
type AnthropicConfig struct {
	APIKey string
	Model  string

	// MaxTokens caps the completion length. Default: 2048
	MaxTokens int64

	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string

	// MaxRetries is handed to the SDK, which retries 429 and 5xx responses.
	MaxRetries int

	// Timeout bounds each request. Zero leaves the SDK default.
	Timeout time.Duration
}

// DefaultAnthropicConfig returns sensible defaults. The API key is left empty.
func DefaultAnthropicConfig() *AnthropicConfig {
	return &AnthropicConfig{
		Model:      "claude-3-5-haiku-latest",
		MaxTokens:  2048,
		MaxRetries: 2,
		Timeout:    2 * time.Minute,
	}
}

// AnthropicClient wraps the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

var _ Completer = (*AnthropicClient)(nil)

// NewAnthropicClient creates a client. Extra request options are applied after
// the ones derived from config.
func NewAnthropicClient(config *AnthropicConfig, opts ...option.RequestOption) (*AnthropicClient, error) {
	if config == nil {
		config = DefaultAnthropicConfig()
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or llm.api_key", ErrUnavailable)
	}

	defaults := DefaultAnthropicConfig()
	model := config.Model
	if model == "" {
		model = defaults.Model
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaults.MaxTokens
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(max(config.MaxRetries, 0)),
	}
	if config.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		requestOpts = append(requestOpts, option.WithRequestTimeout(config.Timeout))
	}
	requestOpts = append(requestOpts, opts...)

	return &AnthropicClient{
		client:    anthropic.NewClient(requestOpts...),
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}, nil
}

// Name implements the provider label used in metrics.
func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

// Complete sends one Messages request and returns the text of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format: no text content blocks")
	}
	return sb.String(), nil
}
