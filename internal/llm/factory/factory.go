// Package factory builds the configured llm.Provider.
package factory

import (
	"fmt"

	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/llm"
	"github.com/newthinker/lunar/internal/llm/claude"
	"github.com/newthinker/lunar/internal/llm/ollama"
	"github.com/newthinker/lunar/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// returns (nil, nil): narration stays rule-based.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		return claude.New(cfg.Claude)
	case "openai":
		return openai.New(cfg.OpenAI)
	case "ollama":
		return ollama.New(cfg.Ollama)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown LLM provider: %s", cfg.Provider))
	}
}
