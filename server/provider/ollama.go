package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/teilomillet/quill/config"
)

// Ollama completes prompts with the native Ollama chat API.
type Ollama struct {
	client  *ollama.Client
	model   string
	options map[string]interface{}
	timeout time.Duration
}

// NewOllama creates a native Ollama backend. Without an endpoint the client
// honours OLLAMA_HOST.
func NewOllama(cfg config.ProviderConfig, httpClient *http.Client) (*Ollama, error) {
	var client *ollama.Client
	if cfg.Endpoint == "" {
		c, err := ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama endpoint %q: %w", cfg.Endpoint, err)
		}
		if httpClient == nil {
			httpClient = http.DefaultClient
		}
		client = ollama.NewClient(base, httpClient)
	}

	return &Ollama{
		client:  client,
		model:   cfg.Model,
		options: cfg.Options,
		timeout: cfg.Timeout,
	}, nil
}

// Complete sends a non-streaming chat request with prompt as the only message.
func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	stream := false
	req := &ollama.ChatRequest{
		Model: o.model,
		Messages: []ollama.Message{
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Options: o.options,
	}

	var out strings.Builder
	err := o.client.Chat(ctx, req, func(res ollama.ChatResponse) error {
		out.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return out.String(), nil
}
