package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAI generates text with the Chat Completions API. It also serves any
// OpenAI-compatible endpoint, Gemini's included.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
	provider  string
}

// NewOpenAI builds an OpenAI-compatible generator.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	provider := ProviderOpenAI
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		if cfg.BaseURL == GeminiOpenAIBaseURL {
			provider = ProviderGemini
		}
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens(cfg),
		provider:  provider,
	}, nil
}

// Generate sends prompt as a single user message, requesting a JSON object
// response format in JSON mode.
func (o *OpenAI) Generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(o.model),
		MaxCompletionTokens: openai.Int(o.maxTokens),
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if jsonMode {
		params.Messages = append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(jsonInstruction)}, params.Messages...)
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", o.wrap(err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (o *OpenAI) wrap(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: o.provider, StatusCode: apiErr.StatusCode, Message: apiErr.Error(), Err: err}
	}
	return fmt.Errorf("%s: %w", o.provider, err)
}
