// Package llm hides the hosted language-model provider behind a single
// prompt-in, text-out call.
package llm

import (
	"context"
	"fmt"

	"lesson-insights-api/config"

	"go.uber.org/zap"
)

// Request is one completion call.
type Request struct {
	Prompt      string
	Temperature float32
}

// Completer returns the model's text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the Completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg, logger), nil
	case config.ProviderGemini:
		return NewGemini(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
