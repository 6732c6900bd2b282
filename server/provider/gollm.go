package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/teilomillet/gollm"

	"github.com/teilomillet/quill/config"
)

// Gollm completes prompts through a gollm LLM (openai, anthropic, groq,
// mistral, ollama, ...).
type Gollm struct {
	llm     gollm.LLM
	timeout time.Duration
}

// NewGollm creates a gollm backend from cfg. Retries are disabled: a request
// reaches the model at most once.
func NewGollm(cfg config.ProviderConfig) (*Gollm, error) {
	opts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Type),
		gollm.SetModel(cfg.Model),
		gollm.SetMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}
	if cfg.Type == "ollama" && cfg.Endpoint != "" {
		opts = append(opts, gollm.SetOllamaEndpoint(cfg.Endpoint))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("create %s LLM: %w", cfg.Type, err)
	}
	for k, v := range cfg.Options {
		llm.SetOption(k, v)
	}
	return NewGollmWithLLM(llm, cfg.Timeout), nil
}

// NewGollmWithLLM wraps an existing LLM.
func NewGollmWithLLM(llm gollm.LLM, timeout time.Duration) *Gollm {
	return &Gollm{llm: llm, timeout: timeout}
}

// Complete sends prompt as a single user message.
func (g *Gollm) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	return g.llm.Generate(ctx, gollm.NewPrompt(prompt))
}
