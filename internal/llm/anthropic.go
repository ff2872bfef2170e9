package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic generates text with the Messages API.
type Anthropic struct {
	client    anthropicsdk.Client
	model     anthropicsdk.Model
	maxTokens int64
}

// NewAnthropic builds an Anthropic generator. SDK retries are disabled;
// enrich.Call owns retry and breaker policy.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic: api key required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250929" // value of anthropicsdk.ModelClaudeSonnet4_5_20250929 (SDK >= 1.13; not available on go1.21-compatible SDK)
	}
	return &Anthropic{
		client:    anthropicsdk.NewClient(opts...),
		model:     anthropicsdk.Model(model),
		maxTokens: maxTokens(cfg),
	}, nil
}

// Generate sends prompt as a single user turn. In JSON mode a system
// instruction asks for a bare JSON object.
func (a *Anthropic) Generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	}
	if jsonMode {
		params.System = []anthropicsdk.TextBlockParam{{Text: jsonInstruction}}
	}
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapAnthropic(err)
	}
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func wrapAnthropic(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: ProviderAnthropic, StatusCode: apiErr.StatusCode, Message: apiErr.Error(), Err: err}
	}
	return fmt.Errorf("anthropic: %w", err)
}
