package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
	openrouterx "github.com/tanpawarit/Hospital-Care-Assistant/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	ExcludeReasoning   bool          `envconfig:"EXCLUDE_REASONING" split_words:"true"`

	// Symptom triage runs as its own short single-turn call.
	TriageModel       string  `envconfig:"TRIAGE_MODEL" split_words:"true"`
	TriageMaxTokens   int     `envconfig:"TRIAGE_MAX_TOKENS" split_words:"true" default:"100"`
	TriageTemperature float64 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"0.2"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.TriageMaxTokens <= 0 {
		return fmt.Errorf("%w: triage max tokens must be > 0", contractx.ErrValidation)
	}
	return nil
}

// OpenRouter returns the provider config for the main conversation model.
func (c Config) OpenRouter() openrouterx.Config {
	return openrouterx.Config{
		BaseURL:             strings.TrimSpace(c.BaseURL),
		APIKey:              strings.TrimSpace(c.APIKey),
		Model:               strings.TrimSpace(c.Model),
		MaxCompletionTokens: c.MaxCompletionToken,
		Temperature:         c.Temperature,
		Timeout:             c.Timeout,
		SiteURL:             strings.TrimSpace(c.SiteURL),
		SiteName:            strings.TrimSpace(c.SiteName),
		ExcludeReasoning:    c.ExcludeReasoning,
	}
}

// TriageModelName falls back to the main model when no triage model is set.
func (c Config) TriageModelName() string {
	if v := strings.TrimSpace(c.TriageModel); v != "" {
		return v
	}
	return strings.TrimSpace(c.Model)
}
