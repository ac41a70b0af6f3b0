package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by Scripted once every reply was used.
var ErrScriptExhausted = errors.New("llm: scripted provider has no replies left")

// Scripted replays canned replies in order and keeps the prompts it saw.
// It stands in for a real provider in tests and offline runs.
type Scripted struct {
	mu      sync.Mutex
	replies []string
	prompts []string
	options []Options
}

func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	s.options = append(s.options, opts)
	if len(s.replies) == 0 {
		return "", &ProviderError{Provider: "scripted", Err: ErrScriptExhausted}
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

// Prompts returns the prompts received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Options returns the options received so far.
func (s *Scripted) Options() []Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Options(nil), s.options...)
}
