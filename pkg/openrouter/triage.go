package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

const (
	defaultTriageMaxTokens   = 100
	defaultTriageTemperature = 0.2
)

var ErrEmptyCompletion = errors.New("openrouter: empty completion")

// TriageAdvisor answers a single symptom description with one chat completion.
// It never keeps history and never calls tools.
type TriageAdvisor struct {
	client       *openaisdk.Client
	model        string
	systemPrompt string
	maxTokens    int64
	temperature  float64
}

type TriageOption func(*TriageAdvisor)

func WithMaxTokens(n int) TriageOption {
	return func(a *TriageAdvisor) {
		if n > 0 {
			a.maxTokens = int64(n)
		}
	}
}

func WithTemperature(t float64) TriageOption {
	return func(a *TriageAdvisor) {
		if t >= 0 {
			a.temperature = t
		}
	}
}

func NewTriageAdvisor(client *openaisdk.Client, modelName, systemPrompt string, opts ...TriageOption) (*TriageAdvisor, error) {
	if client == nil {
		return nil, errors.New("openrouter: triage client is required")
	}
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return nil, errors.New("openrouter: triage model is required")
	}
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		return nil, errors.New("openrouter: triage system prompt is required")
	}

	a := &TriageAdvisor{
		client:       client,
		model:        modelName,
		systemPrompt: systemPrompt,
		maxTokens:    defaultTriageMaxTokens,
		temperature:  defaultTriageTemperature,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

func (a *TriageAdvisor) Advise(ctx context.Context, description string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(a.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(a.systemPrompt),
			openaisdk.UserMessage(description),
		},
		MaxCompletionTokens: openaisdk.Int(a.maxTokens),
		Temperature:         openaisdk.Float(a.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: triage completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}
