// Package llm is the narrow contract between the engine and language model
// providers: a prompt goes in, text comes out.
package llm

import (
	"context"
	"fmt"
)

// Options tune a single completion.
type Options struct {
	Model string
	// JSONMode asks the provider to answer with a JSON object.
	JSONMode    bool
	Temperature float32
	MaxTokens   int
}

// Provider completes prompts.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Func adapts a function to Provider.
type Func func(ctx context.Context, prompt string, opts Options) (string, error)

func (f Func) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// ProviderError is a failed completion.
type ProviderError struct {
	Provider string
	// Status is the transport status code when there is one.
	Status int
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
