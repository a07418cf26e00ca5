// Package llm abstracts the language models that can narrate a report.
package llm

import "context"

// DefaultMaxTokens bounds a completion when the prompt does not.
const DefaultMaxTokens = 256

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// Prompt is a single-turn request: a system instruction and one user
// message.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Tokens returns the token budget, falling back to DefaultMaxTokens.
func (p Prompt) Tokens() int {
	if p.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return p.MaxTokens
}

// Completion holds the model's reply
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	StopReason   string
}
