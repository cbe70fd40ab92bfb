package provider

import (
	"context"
	"fmt"
	"strings"
)

// Options controls a single completion request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Completion is the text produced by a provider, with advisory token usage
// when the provider reports it.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is a single external text-completion backend. Complete makes
// exactly one attempt; cross-provider retries are the Gateway's job.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, opts Options) (*Completion, error)
	Healthy(ctx context.Context) bool
}

// Attempt records the failure of one provider during a fallback traversal.
type Attempt struct {
	Provider string
	Err      error
}

// Error is returned when every configured provider failed for a prompt.
// It carries each provider's failure reason.
type Error struct {
	Attempts []Attempt
}

func (e *Error) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return "all providers failed: " + strings.Join(reasons, "; ")
}
