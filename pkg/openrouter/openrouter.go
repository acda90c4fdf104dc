// Package openrouter builds clients for OpenRouter's OpenAI-compatible API:
// an eino tool-calling chat model for the conversation loop and a plain
// openai-go client for single-shot completions.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config describes one OpenRouter model endpoint.
type Config struct {
	BaseURL             string
	APIKey              string
	Model               string
	MaxCompletionTokens int
	Temperature         float32
	Timeout             time.Duration

	// Attribution headers shown on openrouter.ai.
	SiteURL  string
	SiteName string

	// ExcludeReasoning asks reasoning models to skip reasoning output.
	ExcludeReasoning bool
}

func (c Config) baseURL() string {
	if u := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); u != "" {
		return u
	}
	return DefaultBaseURL
}

func (c Config) headers() http.Header {
	h := http.Header{}
	if v := strings.TrimSpace(c.SiteURL); v != "" {
		h.Set("HTTP-Referer", v)
	}
	if v := strings.TrimSpace(c.SiteName); v != "" {
		h.Set("X-Title", v)
	}
	return h
}

// NewChatModel builds the tool-calling chat model used by the conversation loop.
func NewChatModel(ctx context.Context, cfg Config) (model.ToolCallingChatModel, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openrouter: api key is required")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		return nil, errors.New("openrouter: model is required")
	}

	temperature := cfg.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     cfg.baseURL(),
		APIKey:      apiKey,
		Model:       modelName,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &headerTransport{headers: cfg.headers()},
		},
	}
	if cfg.MaxCompletionTokens > 0 {
		maxTokens := cfg.MaxCompletionTokens
		conf.MaxTokens = &maxTokens
	}
	if cfg.ExcludeReasoning {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{"exclude": true, "effort": "none"},
		}
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model %s: %w", modelName, err)
	}
	return m, nil
}

// NewClient creates an openai-go client pointed at OpenRouter. It returns nil
// when no API key is configured.
func NewClient(cfg Config) *openaisdk.Client {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL()),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	for name, values := range cfg.headers() {
		opts = append(opts, option.WithHeader(name, values[0]))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// headerTransport adds fixed headers to every outgoing request.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if len(t.headers) == 0 {
		return base.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	for name, values := range t.headers {
		req.Header[name] = append([]string(nil), values...)
	}
	return base.RoundTrip(req)
}
