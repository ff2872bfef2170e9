// Package llm adapts hosted model SDKs to the enrich.Generator contract.
//
// Provider errors are normalized into *APIError so callers can classify
// rate limiting and missing models by HTTP status.
package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

// GeminiOpenAIBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

const jsonInstruction = "Respond with a single JSON object only. Do not wrap it in markdown."

// Config selects and tunes a provider.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// APIError is a provider failure with its HTTP status.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	text := strings.TrimSpace(e.Message)
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: %d %s", e.Provider, e.StatusCode, text)
}

// Unwrap returns the SDK error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus reports the response status.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// New returns the Generator for cfg.Provider, or nil for ProviderNone.
func New(cfg Config, logger *zap.Logger) (enrich.Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderAnthropic:
		gen, err := NewAnthropic(cfg)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case ProviderGemini:
		if cfg.BaseURL == "" {
			cfg.BaseURL = GeminiOpenAIBaseURL
		}
		fallthrough
	case ProviderOpenAI:
		gen, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case ProviderNone, "":
		logger.Warn("no model provider configured, enrichment uses raw content")
		return nil, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

func maxTokens(cfg Config) int64 {
	if cfg.MaxTokens <= 0 {
		return 4096
	}
	return int64(cfg.MaxTokens)
}
