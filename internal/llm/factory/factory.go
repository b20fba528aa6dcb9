// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/finlens/finlens/internal/config"
	"github.com/finlens/finlens/internal/llm"
	"github.com/finlens/finlens/internal/llm/claude"
	"github.com/finlens/finlens/internal/llm/ollama"
	"github.com/finlens/finlens/internal/llm/openai"
)

// New creates the named LLM provider from configuration.
func New(name string, cfg config.LLMConfig) (llm.Provider, error) {
	switch name {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", name)
	}
}
