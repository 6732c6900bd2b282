package mocks

import (
	"context"
	"sync"
)

// Completer is a test double for provider.Completer. It answers with
// CompleteFunc, or Response/Err when CompleteFunc is nil, and records every
// prompt.
type Completer struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
	Response     string
	Err          error

	mu      sync.Mutex
	prompts []string
}

// NewCompleter returns a Completer that always answers response.
func NewCompleter(response string) *Completer {
	return &Completer{Response: response}
}

// NewFailingCompleter returns a Completer that always fails with err.
func NewFailingCompleter(err error) *Completer {
	return &Completer{Err: err}
}

// Complete records prompt and answers.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	fn := c.CompleteFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	if c.Err != nil {
		return "", c.Err
	}
	return c.Response, nil
}

// Calls returns the number of Complete calls.
func (c *Completer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// LastPrompt returns the most recent prompt, or "" before the first call.
func (c *Completer) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.prompts) == 0 {
		return ""
	}
	return c.prompts[len(c.prompts)-1]
}
