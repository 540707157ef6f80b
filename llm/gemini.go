package llm

import (
	"context"
	"fmt"
	"strings"

	"lesson-insights-api/apperr"
	"lesson-insights-api/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient calls generateContent on the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGemini(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.Model, logger: logger}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	temperature := req.Temperature

	c.logger.Debug("Sending generate content",
		zap.String("model", c.model),
		zap.Float32("temperature", temperature),
		zap.Int("prompt_chars", len(req.Prompt)))

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt),
		&genai.GenerateContentConfig{Temperature: &temperature})
	if err != nil {
		return "", apperr.Transport("complete", fmt.Errorf("gemini generate content: %w", err))
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", apperr.ServiceResponse("complete", errEmptyCompletion)
	}

	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", apperr.ServiceResponse("complete", errEmptyCompletion)
	}

	return b.String(), nil
}
